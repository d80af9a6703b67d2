// Package model holds the mutable accumulator for one logical constraint
// model: ordered code fragments and file references, named parameter
// assignments, enumerated type declarations, an optional output-shape
// override and an optional solution checker.
//
// A Model does nothing on its own. The session package renders it into the
// concrete input artifacts handed to the driver.
package model
