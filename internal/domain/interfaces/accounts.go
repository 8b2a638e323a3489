package interfaces

import domaintypes "keyrelay/internal/domain/types"

// AccountStore persists per-relay account profiles.
type AccountStore interface {
	SaveAccountProfile(profile domaintypes.AccountProfile) error
	LoadAccountProfile(
		serverURL string,
		username domaintypes.UserID,
	) (domaintypes.AccountProfile, bool, error)
	DeleteAccountProfile(serverURL string, username domaintypes.UserID) error
}
