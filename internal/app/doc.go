// Package app contains the application logic behind the CLI: loading a
// workflow definition and its input tables, building the pipeline, and
// running it once, validating it, or serving it live over socket.io.
// It is decoupled from any specific entrypoint.
package app
