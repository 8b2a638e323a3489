// Package commands defines the keyctl CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Create the local identity
//   - fingerprint  Print the identity fingerprint
//   - register     Publish identity, signed pre-key and one-time pre-keys
//   - replenish    Top the relay's one-time pool back up
//   - rotate       Create and publish a new signed pre-key
//   - revoke       Withdraw one one-time pre-key
//   - count        Show the relay's one-time pool size
//   - fetch        Fetch and verify a peer's pre-key bundle
//   - devices      List a user's devices
//   - deregister   Remove this device from the relay
//
// # Implementation
//
// Global flags (--home, --passphrase, --relay, --timeout) can also be given
// as KEYRELAY_* environment variables; viper merges the two. The root command
// builds the dependency graph (stores, services, relay client) before any
// subcommand runs. Registration details are remembered per relay and user so
// later commands only need the user name.
package commands
