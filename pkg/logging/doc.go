// Package logging provides the subsystem-tagged structured logger used across
// icebergtest.
//
// It is a thin layer over Go's standard slog package. Every entry carries a
// subsystem attribute so output from concurrent stacks, compose runs, and
// query engines can be told apart and filtered.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("TestContext", "Creating network %s", name)
//	logging.Debug("Trino", "Executing query: %s", sql)
//	logging.Warn("TestContext", "Failed to remove network %s: %v", name, err)
//	logging.Error("Suite", err, "step %s failed", step)
//
// # Subsystems
//
// Each package declares its own subsystem constant, for example:
//
//   - **Registry**: capability definition loading
//   - **TestContext**: docker network lifecycle
//   - **Compose**: docker compose invocations
//   - **Assembler**: component acquisition and release
//   - **Suite**: SQL test suite steps
//   - **Results**: results store mutations
//
// Messages below the configured level are dropped before formatting. The
// package is safe for concurrent use; InitForCLI may be called again to
// swap the output writer.
package logging
