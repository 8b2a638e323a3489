// Package store provides persistence for keyrelay.
//
// Relay side, it implements domain.KeyStore three ways:
//   - MemoryKeyStore keeps records in process memory behind per-device locks.
//   - FileKeyStore writes one JSON document per device, atomically replaced
//     on every change.
//   - RedisKeyStore keeps CBOR-encoded records in redis and updates them with
//     an optimistic WATCH/MULTI loop.
//
// Client side, it holds what keyctl keeps on the device:
//   - Identity keys, sealed under a passphrase (IdentityFileStore)
//   - Private halves of pre-keys (PrekeyFileStore)
//   - Relay account profiles (AccountFileStore)
//
// All stores are safe for concurrent use.
package store
