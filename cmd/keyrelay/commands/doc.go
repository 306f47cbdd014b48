// Package commands defines the keyrelay CLI, an administrative surface over
// the keys service.
//
// Commands
//
//   - migrate   Create the key tables
//   - generate  Generate an identity and a signed pre-key upload file
//   - upload    Verify an upload file and store its keys for a device
//   - status    Print key counts and post-quantum state
//   - take      Take one session bundle for a device
//   - delete    Delete every key of an account or a device
//
// # Implementation
//
// The root command loads configuration through viper (flags, an optional
// config file and KEYRELAY_* environment variables) and attaches a zerolog
// logger to the command context. Commands that touch storage build the
// dependency graph on demand with app.NewWire.
package commands
