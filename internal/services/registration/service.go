package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"keyrelay/internal/device"
	"keyrelay/internal/domain"
	"keyrelay/internal/metrics"
)

// MaxPreKeysPerUpload caps one registration or upload batch.
const MaxPreKeysPerUpload = 1000

// Service accepts the public key material devices publish.
type Service struct {
	keys     domain.KeyStore
	verifier domain.SignatureVerifier
	logger   log.Logger
	now      func() time.Time
}

// New returns a Service. Every signed pre-key it accepts is checked with
// verifier against the device's identity key.
func New(keys domain.KeyStore, verifier domain.SignatureVerifier, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Service{keys: keys, verifier: verifier, logger: logger, now: time.Now}
}

// Register stores a fresh record for reg.Address, replacing any previous one.
func (s *Service) Register(ctx context.Context, reg domain.DeviceRegistration) error {
	if err := validateRegistration(reg); err != nil {
		return fmt.Errorf("registration: register %s: %w", reg.Address, err)
	}
	if !s.verifier.Verify(reg.IdentityKey, reg.SignedPreKey.PublicKey, reg.SignedPreKey.Signature) {
		return fmt.Errorf("registration: register %s: %w", reg.Address, domain.ErrInvalidSignature)
	}
	rec, err := device.NewRecord(reg, s.now())
	if err != nil {
		return fmt.Errorf("registration: register %s: %w", reg.Address, err)
	}
	if err := s.keys.Save(ctx, rec); err != nil {
		return fmt.Errorf("registration: register %s: %w", reg.Address, err)
	}

	metrics.RegistrationsTotal.Inc()
	metrics.PreKeysUploadedTotal.Add(float64(len(reg.PreKeys)))
	level.Info(s.logger).Log("msg", "device registered", "addr", reg.Address, "registration_id", reg.RegistrationID, "pre_keys", len(reg.PreKeys))
	return nil
}

// Deregister removes every key held for addr.
func (s *Service) Deregister(ctx context.Context, addr domain.Address) error {
	if err := s.keys.Delete(ctx, addr); err != nil {
		return fmt.Errorf("registration: deregister %s: %w", addr, err)
	}
	level.Info(s.logger).Log("msg", "device deregistered", "addr", addr)
	return nil
}

// UploadPreKeys adds keys to the device's pool, all or nothing, and returns
// the resulting pool size.
func (s *Service) UploadPreKeys(ctx context.Context, addr domain.Address, keys []domain.OneTimePreKeyRecord) (int, error) {
	if err := validatePreKeys(keys); err != nil {
		return 0, fmt.Errorf("registration: upload to %s: %w", addr, err)
	}
	if len(keys) == 0 {
		return 0, fmt.Errorf("registration: upload to %s: empty batch: %w", addr, domain.ErrInvalidRequest)
	}

	var count int
	err := s.keys.Update(ctx, addr, func(rec *device.Record) error {
		if err := rec.OneTimePreKeys.InsertAll(keys); err != nil {
			return err
		}
		count = rec.OneTimePreKeys.Count()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("registration: upload to %s: %w", addr, err)
	}

	metrics.PreKeysUploadedTotal.Add(float64(len(keys)))
	level.Info(s.logger).Log("msg", "pre-keys uploaded", "addr", addr, "added", len(keys), "available", count)
	return count, nil
}

// RotateSignedPreKey replaces the device's signed pre-key once spk verifies
// under the stored identity key. The one-time pool is left alone.
func (s *Service) RotateSignedPreKey(ctx context.Context, addr domain.Address, spk domain.SignedPreKeyRecord) error {
	if len(spk.PublicKey) == 0 || len(spk.Signature) == 0 {
		return fmt.Errorf("registration: rotate %s: %w", addr, domain.ErrInvalidRequest)
	}
	err := s.keys.Update(ctx, addr, func(rec *device.Record) error {
		if !s.verifier.Verify(rec.IdentityKey, spk.PublicKey, spk.Signature) {
			return domain.ErrInvalidSignature
		}
		c := spk.Clone()
		rec.SignedPreKey = &c
		return nil
	})
	if err != nil {
		return fmt.Errorf("registration: rotate %s: %w", addr, err)
	}
	level.Info(s.logger).Log("msg", "signed pre-key rotated", "addr", addr, "signed_pre_key_id", spk.ID)
	return nil
}

// RemovePreKey withdraws one one-time pre-key. Removing an id that is not
// pooled succeeds.
func (s *Service) RemovePreKey(ctx context.Context, addr domain.Address, id domain.PreKeyID) error {
	err := s.keys.Update(ctx, addr, func(rec *device.Record) error {
		rec.OneTimePreKeys.Remove(id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("registration: remove pre-key %d of %s: %w", id, addr, err)
	}
	return nil
}

// PreKeyCount reports how many one-time pre-keys the device has left.
func (s *Service) PreKeyCount(ctx context.Context, addr domain.Address) (int, error) {
	rec, err := s.keys.Load(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("registration: count %s: %w", addr, err)
	}
	return rec.OneTimePreKeys.Count(), nil
}

func validateRegistration(reg domain.DeviceRegistration) error {
	switch {
	case reg.Address.User == "":
		return fmt.Errorf("missing user: %w", domain.ErrInvalidRequest)
	case len(reg.IdentityKey) == 0:
		return fmt.Errorf("missing identity key: %w", domain.ErrInvalidRequest)
	case len(reg.SignedPreKey.PublicKey) == 0 || len(reg.SignedPreKey.Signature) == 0:
		return fmt.Errorf("missing signed pre-key: %w", domain.ErrInvalidRequest)
	}
	return validatePreKeys(reg.PreKeys)
}

func validatePreKeys(keys []domain.OneTimePreKeyRecord) error {
	if len(keys) > MaxPreKeysPerUpload {
		return fmt.Errorf("%d pre-keys exceeds the limit of %d: %w", len(keys), MaxPreKeysPerUpload, domain.ErrInvalidRequest)
	}
	for _, k := range keys {
		if len(k.PublicKey) == 0 {
			return fmt.Errorf("pre-key %d has no public key: %w", k.ID, domain.ErrInvalidRequest)
		}
	}
	return nil
}

// Compile-time assertion that Service implements domain.RegistrationService.
var _ domain.RegistrationService = (*Service)(nil)
