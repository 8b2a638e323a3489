// Package app wires the relay server and the device CLI.
//
// For the server, LoadServerConfig reads keyrelay.yaml and KEYRELAY_*
// environment overrides through viper, and NewServer turns the result into a
// running http.Server: it picks the KeyStore backend (memory, file or redis),
// connects the pool event notifiers, builds the bundle and registration
// services and mounts them on the gin router together with the optional rate
// limiter and /metrics endpoint.
//
// For the CLI, NewWire builds the local identity, pre-key and account stores,
// the services on top of them, and the HTTP relay client, exposing them via
// the Wire struct for commands to use.
//
// NewLogger builds the go-kit logger both binaries share.
package app
