// Package session runs one model against one solver configuration through
// the driver and turns the driver's output into typed results.
//
// A session moves through Building, Spawned, Streaming, Drained and
// Terminated. Option checks that can fail do so while Building, before any
// process exists. Output is parsed as it arrives and every event is applied
// to a result.Assembler in stream order; Start exposes the same events to
// the caller as they happen. Temporary input files live exactly as long as
// the session.
package session
