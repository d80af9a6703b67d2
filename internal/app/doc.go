// Package app contains the application logic behind the command line: it
// resolves the driver and solver, builds a model from files or a solve
// plan, runs the session and renders its result. It is decoupled from any
// specific entrypoint like a CLI or server.
package app
