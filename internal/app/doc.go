// Package app wires application dependencies for the CLI.
//
// It loads Config through viper, resolves the database DSN (optionally from
// AWS Secrets Manager), opens the key tables and builds the stores and the
// keys service, exposing them via the Wire struct for commands to use.
package app
