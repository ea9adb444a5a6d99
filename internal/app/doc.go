// Package app wires application dependencies for the CLI.
//
// It loads the YAML configuration, builds the peer store, coordinator and
// listener from it, and exposes them via the Wire struct for commands to
// use.
package app
