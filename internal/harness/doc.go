// Package harness runs conformance scenarios against a mirrored graph.
//
// A scenario seeds an in-memory remote store, mirrors it into a fresh
// graph, executes a list of steps against either side and then evaluates
// assertions on the resulting tree.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: rename_value
//	description: "Pushing a staged name reaches the remote and comes back"
//	seed:
//	  name: Demo
//	  values:
//	    - { name: limit, description: "10" }
//	steps:
//	  - op: push_name
//	    path: value:limit
//	    args: { name: ceiling }
//	  - op: push_name
//	    path: value:ceiling
//	    args: { name: ceiling }
//	    expect: NEW_NAME_IS_SAME_AS_CURRENT
//	assertions:
//	  - type: name
//	    path: value:ceiling
//	    name: ceiling
//
// A seed may live in a CUE file instead (seed_file), resolved relative to
// the scenario.
//
// # Paths
//
// A path walks down from the project by kind and name, for example
// "system:Main/object:Root/state:speed/getter:read". The empty path is the
// project itself. The first child with a matching name wins.
//
// # Built-in Checks
//
// After the assertions, every run checks that the mirror equals the remote
// tree and that replaying the remote's journal into an empty store
// rebuilds the same tree.
//
// # Deterministic Testing
//
// Document IDs and local IDs come from sequential generators and the
// journal lives in an in-memory SQLite database, so identical scenarios
// produce identical golden output.
package harness
