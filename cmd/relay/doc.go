// Command relay runs the key relay: an HTTP service that stores each
// device's identity key, signed pre-key and pool of one-time pre-keys, and
// hands out pre-key bundles to peers that want to start a session.
//
// Every bundle fetch consumes at most one one-time pre-key, atomically, so
// no key is ever served twice. When a pool runs low or dry the relay logs a
// pool event and, if configured, publishes it on a redis channel so the
// owning device can replenish.
//
// HTTP API
//
//	PUT    /v1/keys/{user}/{device}               register a device
//	DELETE /v1/keys/{user}/{device}               deregister it
//	GET    /v1/keys/{user}/{device}/bundle        fetch a bundle (JSON or application/x-protobuf)
//	GET    /v1/keys/{user}                        list a user's devices
//	POST   /v1/keys/{user}/{device}/prekeys       upload one-time pre-keys
//	DELETE /v1/keys/{user}/{device}/prekeys/{id}  withdraw one pre-key
//	GET    /v1/keys/{user}/{device}/prekeys/count count remaining pre-keys
//	PUT    /v1/keys/{user}/{device}/signed        rotate the signed pre-key
//	GET    /healthz                               liveness
//	GET    /metrics                               prometheus metrics
//
// Configuration comes from keyrelay.yaml (or --config) with KEYRELAY_*
// environment overrides, e.g. KEYRELAY_STORE_BACKEND=redis. Records live in
// memory, in a directory of JSON files, or in redis.
//
// The relay never sees private keys; it only stores and serves public
// material.
package main
