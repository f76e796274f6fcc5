// Package commands defines the pairchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - chat         Join a relay session and exchange messages over stdin/stdout
//   - keywrap      Generate a keypair and store it wrapped under a password
//   - unwrap       Check that a stored key opens with a password
//   - fingerprint  Print the fingerprint of a stored public key
//   - demo         Run both peers of a session in one process
//
// # Implementation
//
// The root command loads configuration from the environment and an optional
// .env file, applies flag overrides and builds the shared app.Wire before
// any subcommand runs.
package commands
