// Package config holds the non-secret settings for icebergtest, the
// resolved secrets handed to components, and the structured error types
// used while loading declarative definitions.
//
// # Settings
//
// Settings are read from icebergtest.yaml in the working directory, or from
// the file given with --config, and layered over GetDefaultSettings. A
// missing default file is fine; a missing explicit file is an error.
//
//	databaseDir: database
//	docker:
//	  composeBinary: docker compose
//	  networkPrefix: iceberg-test
//	health:
//	  interval: 2s
//	  attempts: 60
//
// # Secrets
//
// ResolveSecrets picks a single source at start-up:
//
//  1. doppler, when the CLI is installed and the project is configured
//  2. a .env file
//  3. the process environment
//
// The result is an immutable Secrets value passed to whichever component
// needs credentials. Nothing is written back into the environment.
//
// # Errors
//
// ConfigurationError and ConfigurationErrorCollection describe problems in
// hand-authored definition files. Loaders collect them instead of failing so
// that one broken file does not hide the rest.
package config
