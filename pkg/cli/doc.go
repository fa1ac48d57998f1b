// Package cli implements the netmonkey command-line interface.
//
// Commands:
//
//	netmonkey request [METHOD] URL   send one request through the engine
//	netmonkey bench URL              send many requests and report outcomes
//	netmonkey proxy                  run a fault-injecting forward proxy
//	netmonkey validate [FILE]        check a fault file
//	netmonkey version                print build information
//
// Commands that build an engine accept a fault file (--config) and ad-hoc
// faults (--code, --latency, --fail). Settings resolve from flags, then
// NETMONKEY_* environment variables, then .netmonkeyrc.yaml files.
package cli
