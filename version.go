// Package sslrun runs the openssl command-line tool as a child process and
// exposes it through a CLI and an MCP server.
package sslrun

// Version is the sslrun release version.
const Version = "v0.3.0"
