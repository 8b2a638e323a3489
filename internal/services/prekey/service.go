package prekey

import (
	"errors"
	"fmt"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
	"keyrelay/internal/util/memzero"
)

// MaxBatch bounds how many one-time pre-keys one call may generate.
const MaxBatch = 1000

var (
	errNoSignedPreKey = errors.New("no signed pre-key available")
	errBadCount       = fmt.Errorf("pre-key count must be between 1 and %d", MaxBatch)
)

// Service generates pre-key pairs, keeps their private halves in the local
// store and returns the public halves for publishing.
type Service struct {
	ids domain.IdentityStore
	ps  domain.PreKeyStore
}

// New returns a Service backed by the given stores.
func New(ids domain.IdentityStore, ps domain.PreKeyStore) *Service {
	return &Service{ids: ids, ps: ps}
}

// BuildRegistration returns everything addr publishes on first contact: the
// identity key, the current signed pre-key (created if the device has none)
// and count freshly generated one-time pre-keys.
func (s *Service) BuildRegistration(
	passphrase string,
	addr domain.Address,
	regID domain.RegistrationID,
	count int,
) (domain.DeviceRegistration, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.DeviceRegistration{}, err
	}
	defer memzero.Zero(id.EdPriv[:])

	spk, err := s.currentSignedPreKey()
	if errors.Is(err, errNoSignedPreKey) {
		spk, err = s.rotate(id)
	}
	if err != nil {
		return domain.DeviceRegistration{}, err
	}

	otpks, err := s.GenerateOneTimePreKeys(count)
	if err != nil {
		return domain.DeviceRegistration{}, err
	}
	return domain.DeviceRegistration{
		Address:        addr,
		RegistrationID: regID,
		IdentityKey:    domain.PublicKey(id.EdPub.Slice()),
		SignedPreKey:   spk,
		PreKeys:        otpks,
	}, nil
}

// GenerateOneTimePreKeys creates count new one-time pre-keys with ids that
// this device has never used, stores them and returns their public halves.
func (s *Service) GenerateOneTimePreKeys(count int) ([]domain.OneTimePreKeyRecord, error) {
	if count < 1 || count > MaxBatch {
		return nil, errBadCount
	}
	next, err := s.ps.NextOneTimePreKeyID()
	if err != nil {
		return nil, err
	}

	pairs := make([]domain.OneTimePreKeyPair, 0, count)
	out := make([]domain.OneTimePreKeyRecord, 0, count)
	for i := range count {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
		id := next + domain.PreKeyID(i)
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: id, Priv: priv, Pub: pub})
		out = append(out, domain.OneTimePreKeyRecord{ID: id, PublicKey: crypto.EncodeX25519(pub)})
	}
	if err := s.ps.SaveOneTimePreKeys(pairs); err != nil {
		return nil, err
	}
	return out, nil
}

// RotateSignedPreKey creates the next signed pre-key, signs it with the
// identity key and makes it current. Older signed pre-keys stay in the store
// so sessions started against them can still be answered.
func (s *Service) RotateSignedPreKey(passphrase string) (domain.SignedPreKeyRecord, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	defer memzero.Zero(id.EdPriv[:])
	return s.rotate(id)
}

// DiscardOneTimePreKey deletes the private half of a one-time pre-key.
func (s *Service) DiscardOneTimePreKey(id domain.PreKeyID) (bool, error) {
	pair, ok, err := s.ps.ConsumeOneTimePreKey(id)
	memzero.Zero(pair.Priv[:])
	return ok, err
}

func (s *Service) rotate(id domain.Identity) (domain.SignedPreKeyRecord, error) {
	cur, ok, err := s.ps.CurrentSignedPreKeyID()
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	next := domain.SignedPreKeyID(1)
	if ok {
		next = cur + 1
	}

	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	enc := crypto.EncodeX25519(pub)
	sig := crypto.SignEd25519(id.EdPriv, enc)

	pair := domain.SignedPreKeyPair{ID: next, Priv: priv, Pub: pub, Signature: sig}
	if err := s.ps.SaveSignedPreKey(pair); err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	if err := s.ps.SetCurrentSignedPreKeyID(next); err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	return domain.SignedPreKeyRecord{ID: next, PublicKey: enc, Signature: sig}, nil
}

func (s *Service) currentSignedPreKey() (domain.SignedPreKeyRecord, error) {
	cur, ok, err := s.ps.CurrentSignedPreKeyID()
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	if !ok {
		return domain.SignedPreKeyRecord{}, errNoSignedPreKey
	}
	pair, found, err := s.ps.LoadSignedPreKey(cur)
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	if !found {
		return domain.SignedPreKeyRecord{}, errNoSignedPreKey
	}
	return domain.SignedPreKeyRecord{
		ID:        pair.ID,
		PublicKey: crypto.EncodeX25519(pair.Pub),
		Signature: pair.Signature,
	}, nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
