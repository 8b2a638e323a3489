package bundle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	assembly "keyrelay/internal/bundle"
	"keyrelay/internal/device"
	"keyrelay/internal/domain"
	"keyrelay/internal/metrics"
)

// DefaultLowWatermark is the pool size at or below which a fetch raises a
// low-pool event.
const DefaultLowWatermark = 10

// Service serves pre-key bundles out of a KeyStore.
type Service struct {
	keys      domain.KeyStore
	assembler *assembly.Assembler
	notifier  domain.Notifier
	logger    log.Logger
	watermark int
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where pool events go. Without one they are dropped.
func WithNotifier(n domain.Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLowWatermark overrides DefaultLowWatermark. A negative value disables
// low-pool events; exhaustion is still reported.
func WithLowWatermark(n int) Option { return func(s *Service) { s.watermark = n } }

// New returns a Service reading and consuming from keys.
func New(keys domain.KeyStore, assembler *assembly.Assembler, opts ...Option) *Service {
	s := &Service{
		keys:      keys,
		assembler: assembler,
		logger:    log.NewNopLogger(),
		watermark: DefaultLowWatermark,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch assembles a bundle for addr, consuming one one-time pre-key when any
// is left. Load, consumption and save happen as one atomic store update, so
// concurrent fetches for the same device never share a one-time pre-key.
//
// A context that is already done is refused before anything is consumed.
// Once the update commits the key is spent even if the caller has gone away.
func (s *Service) Fetch(ctx context.Context, addr domain.Address) (domain.PreKeyBundle, error) {
	if err := ctx.Err(); err != nil {
		return domain.PreKeyBundle{}, fmt.Errorf("bundle: fetch %s: %w", addr, err)
	}
	start := s.now()

	var (
		b         domain.PreKeyBundle
		remaining int
	)
	err := s.keys.Update(ctx, addr, func(rec *device.Record) error {
		var err error
		if b, err = s.assembler.Assemble(rec); err != nil {
			return err
		}
		remaining = rec.OneTimePreKeys.Count()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrMissingSignedPreKey) || errors.Is(err, domain.ErrInvalidSignature) {
			level.Error(s.logger).Log("msg", "device record cannot produce a bundle", "addr", addr, "err", err)
		}
		return domain.PreKeyBundle{}, fmt.Errorf("bundle: fetch %s: %w", addr, err)
	}

	metrics.ObserveBundle(b.HasPreKey(), s.now().Sub(start))
	if ctx.Err() != nil {
		var id domain.PreKeyID
		if b.PreKey != nil {
			id = b.PreKey.ID
		}
		level.Warn(s.logger).Log("msg", "bundle assembled after caller went away", "addr", addr, "pre_key_id", id)
	}
	level.Debug(s.logger).Log("msg", "bundle served", "addr", addr, "has_pre_key", b.HasPreKey(), "remaining", remaining)

	s.signal(ctx, addr, b.HasPreKey(), remaining)
	return b, nil
}

// signal raises at most one pool event for a completed fetch.
func (s *Service) signal(ctx context.Context, addr domain.Address, hadPreKey bool, remaining int) {
	ev := domain.PoolEvent{Address: addr, Remaining: remaining, At: s.now()}
	switch {
	case !hadPreKey:
		metrics.PoolExhaustedTotal.Inc()
		ev.Kind = domain.PoolExhausted
	case s.watermark >= 0 && remaining <= s.watermark:
		metrics.PoolLowWatermarkTotal.Inc()
		ev.Kind = domain.PoolLow
	default:
		return
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
		level.Warn(s.logger).Log("msg", "pool event not delivered", "addr", addr, "event", string(ev.Kind), "err", err)
	}
}

// Devices lists the device ids registered for user. A user without devices
// is reported as domain.ErrNotFound.
func (s *Service) Devices(ctx context.Context, user domain.UserID) ([]domain.DeviceID, error) {
	ids, err := s.keys.Devices(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("bundle: devices of %s: %w", user, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("bundle: devices of %s: %w", user, domain.ErrNotFound)
	}
	return ids, nil
}

// Compile-time assertion that Service implements domain.BundleService.
var _ domain.BundleService = (*Service)(nil)
