// Package cliconfig provides the layered settings used by the netmonkey CLI.
//
// Settings are resolved with the following precedence (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables (NETMONKEY_* prefix)
//  3. Local settings file (.netmonkeyrc.yaml in the current directory)
//  4. Global settings file (~/.config/netmonkey/config.yaml)
//  5. Default values
//
// The source of every value is tracked in CLIConfig.Sources so that
// "where did this come from" questions can be answered in debug output.
//
// Fault rules themselves live in a fault file (see pkg/config); this package
// only tells the CLI where to find it and how to behave.
package cliconfig
