// Package server holds the status API server configuration.
//
// The serve command reads the listen port, the optional API key protecting
// every route except /health, and the graceful shutdown timeout from here.
package server
