// Package pyfmt holds build metadata shared by the command and the MCP server.
package pyfmt

// Version is the current version of pyfmt, set at build time.
var Version = "dev"
