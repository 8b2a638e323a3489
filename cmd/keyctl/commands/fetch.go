package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

// fetchOutput is what fetch prints: the bundle plus the identity fingerprint
// the user compares out of band.
type fetchOutput struct {
	Fingerprint domain.Fingerprint  `json:"fingerprint"`
	Bundle      domain.PreKeyBundle `json:"bundle"`
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <user> <device>",
		Short: "Fetch a peer's pre-key bundle and check its signature",
		Long:  "Fetch a peer's pre-key bundle. This consumes one of the peer's one-time\n" +
			"pre-keys. The signed pre-key is verified against the bundle's identity key\n" +
			"before anything is printed.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := relayClient()
			if err != nil {
				return err
			}
			dev, err := domain.ParseDeviceID(args[1])
			if err != nil {
				return err
			}
			addr := domain.Address{User: domain.UserID(args[0]), Device: dev}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			b, err := rc.FetchPreKeyBundle(ctx, addr)
			if err != nil {
				return err
			}
			if !appCtx.Verifier.Verify(b.IdentityKey, b.SignedPreKey.PublicKey, b.SignedPreKey.Signature) {
				return fmt.Errorf("bundle for %s: %w", addr, domain.ErrInvalidSignature)
			}
			if !b.HasPreKey() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: no one-time pre-key left for", addr)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(fetchOutput{Fingerprint: crypto.Fingerprint(b.IdentityKey), Bundle: b})
		},
	}
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices <user>",
		Short: "List a user's registered devices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := relayClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			ids, err := rc.ListDevices(ctx, domain.UserID(args[0]))
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no registered devices\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func deregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deregister <user>",
		Short: "Remove this device's keys from the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := relayClient()
			if err != nil {
				return err
			}
			acct, err := account(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := rc.Deregister(ctx, addressOf(acct)); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := appCtx.Accounts.DeleteAccountProfile(acct.ServerURL, acct.Username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deregistered %s\n", addressOf(acct))
			return nil
		},
	}
}
