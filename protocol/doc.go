// Package protocol turns the driver's output channels into an ordered
// sequence of events.
//
// Two framings are understood. Drivers from 2.6.0 on write one JSON record
// per line (--json-stream). Older drivers write solution blocks separated by
// "----------" lines, "=====STATUS=====" markers and "%%%mzn-stat:" lines.
// Both are read line by line as the process produces them, so long searches
// are observable while they run.
//
// Diagnostics written to the error channel are parsed separately and never
// mixed into solution parsing.
package protocol
