// Package stack assembles storage, catalog and query engine into a running
// stack.
//
// Components are built from the component registry first, so unknown keys
// and missing secrets fail before anything is provisioned. They are then
// set up in dependency order (storage, catalog, query engine) and torn down
// in exact reverse order on every exit path. A component whose Setup failed
// is torn down too, since Teardown tolerates a partial Setup.
//
// Teardown runs on a context detached from the caller's and bounded by
// Settings.TeardownTimeout, so an interrupted run still releases its
// containers and cloud resources. Teardown errors are logged and never
// replace the error that ended the run.
package stack
