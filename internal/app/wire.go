package app

import (
	"fmt"
	"os"
	"time"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
	"keyrelay/internal/relay"
	"keyrelay/internal/services/identity"
	"keyrelay/internal/services/prekey"
	"keyrelay/internal/store"
)

// ClientConfig holds runtime wiring options for the device CLI.
type ClientConfig struct {
	Home     string        // key directory, e.g. $HOME/.keyrelay
	RelayURL string        // relay base URL, e.g. http://127.0.0.1:8080
	Timeout  time.Duration // per-request timeout; zero means relay.DefaultTimeout
}

// Wire bundles the stores, services and relay client the CLI uses.
type Wire struct {
	Identity domain.IdentityService
	PreKeys  domain.PreKeyService
	Accounts domain.AccountStore
	Relay    domain.RelayClient
	Verifier domain.SignatureVerifier
}

// NewWire constructs the client dependency graph from cfg. Relay is nil when
// no relay URL is configured.
func NewWire(cfg ClientConfig) (*Wire, error) {
	if cfg.Home == "" {
		return nil, fmt.Errorf("client config: home directory is required")
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	identityStore := store.NewIdentityFileStore(cfg.Home)
	prekeyStore := store.NewPrekeyFileStore(cfg.Home)

	w := &Wire{
		Identity: identity.New(identityStore),
		PreKeys:  prekey.New(identityStore, prekeyStore),
		Accounts: store.NewAccountFileStore(cfg.Home),
		Verifier: crypto.Ed25519Verifier{},
	}
	if cfg.RelayURL != "" {
		var opts []relay.Option
		if cfg.Timeout > 0 {
			opts = append(opts, relay.WithTimeout(cfg.Timeout))
		}
		w.Relay = relay.NewHTTP(cfg.RelayURL, opts...)
	}
	return w, nil
}
