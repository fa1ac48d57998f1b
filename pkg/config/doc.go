// Package config loads fault files for netmonkey.
//
// A fault file describes the engine mode and a list of faults:
//
//	version: "1"
//	mode: aggressive
//	seed: 42
//	faults:
//	  - name: users-503
//	    type: code
//	    method: GET
//	    url: https://api.example.com/users
//	    weight: 3
//	    code: 503
//	  - name: slow
//	    type: latency
//	    delay: 250ms
//
// Files are YAML (.yaml, .yml) or JSON (anything else). Loading runs three
// passes: syntax, structural validation against an embedded JSON Schema, and
// field validation with cross-field checks. Every failure is reported as a
// wrapped sentinel error so callers can use errors.Is.
//
// File-based Configuration:
//
//	file, err := config.LoadFile("faults.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine := monkey.New(file.EngineOptions()...)
//	if _, err := file.Apply(engine); err != nil {
//	    log.Fatal(err)
//	}
//
// Watcher re-reads a file on change and registers faults it has not seen
// before. Rules are never removed from a running engine.
package config
