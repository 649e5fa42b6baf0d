// Package server holds the report HTTP server configuration.
//
// The serve command exposes the latest archived run report over HTTP; this
// package defines its configuration structure (port and API key). The
// command itself wires the Fiber application.
package server
