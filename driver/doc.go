// Package driver locates the solver driver executable, reports its version
// and capabilities, and starts processes through a Launcher.
//
// Sessions receive a *Driver explicitly. The package also keeps a
// process-wide default driver (Default, SetDefault) for callers that do not
// want to thread one through; tests substitute a Driver built with a fake
// Launcher instead of touching the default.
package driver
