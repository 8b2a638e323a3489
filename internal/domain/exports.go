package domain

import (
	interfaces "keyrelay/internal/domain/interfaces"
	types "keyrelay/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID              = types.UserID
	DeviceID            = types.DeviceID
	RegistrationID      = types.RegistrationID
	PreKeyID            = types.PreKeyID
	SignedPreKeyID      = types.SignedPreKeyID
	Address             = types.Address
	Fingerprint         = types.Fingerprint
	PublicKey           = types.PublicKey
	Signature           = types.Signature
	Identity            = types.Identity
	OneTimePreKeyRecord = types.OneTimePreKeyRecord
	SignedPreKeyRecord  = types.SignedPreKeyRecord
	OneTimePreKeyPair   = types.OneTimePreKeyPair
	SignedPreKeyPair    = types.SignedPreKeyPair
	PreKeyBundle        = types.PreKeyBundle
	DeviceRegistration  = types.DeviceRegistration
	PoolEvent           = types.PoolEvent
	PoolEventKind       = types.PoolEventKind
	AccountProfile      = types.AccountProfile
	X25519Public        = types.X25519Public
	X25519Private       = types.X25519Private
	Ed25519Public       = types.Ed25519Public
	Ed25519Private      = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyStore            = interfaces.KeyStore
	BundleService       = interfaces.BundleService
	RegistrationService = interfaces.RegistrationService
	IdentityService     = interfaces.IdentityService
	PreKeyService       = interfaces.PreKeyService
	RelayClient         = interfaces.RelayClient
	SignatureVerifier   = interfaces.SignatureVerifier
	Notifier            = interfaces.Notifier
	IdentityStore       = interfaces.IdentityStore
	PreKeyStore         = interfaces.PreKeyStore
	AccountStore        = interfaces.AccountStore
)

// Pool event kinds.
const (
	PoolLow       = types.PoolLow
	PoolExhausted = types.PoolExhausted
)

// Errors shared by every layer. Compare with errors.Is.
var (
	ErrNotFound            = types.ErrNotFound
	ErrDuplicateID         = types.ErrDuplicateID
	ErrMissingSignedPreKey = types.ErrMissingSignedPreKey
	ErrInvalidSignature    = types.ErrInvalidSignature
	ErrConcurrentUpdate    = types.ErrConcurrentUpdate
	ErrInvalidRequest      = types.ErrInvalidRequest
)

// Parsers re-exported from the types subpackage.
var (
	ParseDeviceID = types.ParseDeviceID
	ParsePreKeyID = types.ParsePreKeyID
)
