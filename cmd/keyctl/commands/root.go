package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"keyrelay/internal/app"
	"keyrelay/internal/domain"
)

var (
	cfg    *viper.Viper
	appCtx *app.Wire
)

// Execute runs the keyctl command tree against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cfg = viper.New()
	cfg.SetEnvPrefix(app.EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	root := &cobra.Command{
		Use:          "keyctl",
		Short:        "Manage this device's keys on a key relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home := cfg.GetString("home")
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".keyrelay")
			}
			w, err := app.NewWire(app.ClientConfig{
				Home:     home,
				RelayURL: cfg.GetString("relay"),
				Timeout:  cfg.GetDuration("timeout"),
			})
			if err != nil {
				return err
			}
			appCtx = w
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "key directory (default ~/.keyrelay, env KEYRELAY_HOME)")
	pf.StringP("passphrase", "p", "", "passphrase protecting the identity key (env KEYRELAY_PASSPHRASE)")
	pf.String("relay", "", "relay base URL, e.g. http://127.0.0.1:8080 (env KEYRELAY_RELAY)")
	pf.Duration("timeout", 10*time.Second, "per-request timeout")
	for _, name := range []string{"home", "passphrase", "relay", "timeout"} {
		_ = cfg.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		replenishCmd(),
		rotateCmd(),
		revokeCmd(),
		countCmd(),
		fetchCmd(),
		devicesCmd(),
		deregisterCmd(),
	)
	return root
}

func passphrase() (string, error) {
	p := cfg.GetString("passphrase")
	if p == "" {
		return "", errors.New("passphrase required (-p)")
	}
	return p, nil
}

func relayClient() (domain.RelayClient, error) {
	if appCtx.Relay == nil {
		return nil, errors.New("no relay configured. use --relay")
	}
	return appCtx.Relay, nil
}

// account returns the saved registration of user on the configured relay.
func account(user string) (domain.AccountProfile, error) {
	p, ok, err := appCtx.Accounts.LoadAccountProfile(cfg.GetString("relay"), domain.UserID(user))
	if err != nil {
		return domain.AccountProfile{}, err
	}
	if !ok {
		return domain.AccountProfile{}, errors.New("not registered with this relay as " + user + ". run register first")
	}
	return p, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, cfg.GetDuration("timeout"))
}
