// Package harness runs YAML preference scenarios against a real Store.
//
// A scenario seeds a backing table, runs a sequence of edit steps through
// one store, and records a trace of every listener notification, commit
// result, and read. The trace is checked by assertions and can be compared
// to a golden file.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	namespace: settings        # default "settings"
//	backend: memory            # memory (default) or sqlite
//	seed:                      # rows present before the first step
//	  theme: dark
//	fail_keys: [broken]        # memory only: writes to these keys fail
//	steps:
//	  - put: { theme: light }
//	    remove: [obsolete]
//	    get: [theme]           # read after the commit, traced
//	    expect:
//	      persisted: [theme]
//	assertions:
//	  - type: notified
//	    keys: [theme]
//	  - type: final_state
//	    expect: { theme: light }
//
// Each step uses a fresh Editor: clear (if set), puts in key order, then
// removes. The step's commit is waited for before its reads run, so traces
// are deterministic.
//
// # Assertion Types
//
//   - notified: the exact sequence of notified keys
//   - notify_count: how often one key was notified
//   - final_state: the exact backing table contents after all steps
//   - writes: the number of rows written (memory backend only)
//
// # Golden Files
//
// RunWithGolden compares the trace against testdata/golden/{name}.golden.
// To regenerate golden files:
//
//	go test ./internal/harness -update
package harness
