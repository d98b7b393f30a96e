// Package lockfile records the state of generated packages so that stale
// output can be detected without regenerating.
//
// The lockfile captures, per manifest target, the SHA-256 of the annotated
// source, the versions it was generated for, and the SHA-256 of every file
// written. Paths are stored relative to the lockfile's directory in slash
// form, so the file can be committed and checked on any machine.
//
// # Lockfile Structure
//
// A lockfile contains:
//   - lockFileVersion: Schema version for format compatibility
//   - targets: One entry per manifest target, keyed by target name
//
// # Usage
//
// Read an existing lockfile and check it against the workspace:
//
//	lf, err := lockfile.ReadFile("versioned.lock")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	drift, err := lf.Verify(".")
//
// Create a new lockfile:
//
//	lf := lockfile.New()
//	lf.Set("schema", entry)
//	if err := lf.WriteFile("versioned.lock"); err != nil {
//	    log.Fatal(err)
//	}
package lockfile
