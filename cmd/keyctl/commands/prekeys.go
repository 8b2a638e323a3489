package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyrelay/internal/domain"
)

func addressOf(p domain.AccountProfile) domain.Address {
	return domain.Address{User: p.Username, Device: p.Device}
}

// replenish <user>: top the relay's pool back up to --target.
func replenishCmd() *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "replenish <user>",
		Short: "Upload one-time pre-keys until the relay holds --target of them",
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
			addr := addressOf(acct)

			ctx, cancel := commandContext(cmd)
			defer cancel()
			have, err := rc.PreKeyCount(ctx, addr)
			if err != nil {
				return err
			}
			if have >= target {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has %d one-time pre-keys, nothing to do\n", addr, have)
				return nil
			}

			keys, err := appCtx.PreKeys.GenerateOneTimePreKeys(target - have)
			if err != nil {
				return err
			}
			n, err := rc.UploadPreKeys(ctx, addr, keys)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d one-time pre-keys, %s now has %d\n", len(keys), addr, n)
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", 100, "pool size to reach")
	return cmd
}

// rotate <user>: create, sign and publish a new signed pre-key.
func rotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <user>",
		Short: "Rotate the signed pre-key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			rc, err := relayClient()
			if err != nil {
				return err
			}
			acct, err := account(args[0])
			if err != nil {
				return err
			}

			spk, err := appCtx.PreKeys.RotateSignedPreKey(pass)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := rc.RotateSignedPreKey(ctx, addressOf(acct), spk); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed pre-key %d published\n", spk.ID)
			return nil
		},
	}
}

// revoke <user> <id>: withdraw a one-time pre-key and forget its private half.
func revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <user> <pre-key-id>",
		Short: "Withdraw a one-time pre-key from the relay and delete it locally",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := relayClient()
			if err != nil {
				return err
			}
			acct, err := account(args[0])
			if err != nil {
				return err
			}
			id, err := domain.ParsePreKeyID(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := rc.RemovePreKey(ctx, addressOf(acct), id); err != nil {
				return err
			}
			if _, err := appCtx.PreKeys.DiscardOneTimePreKey(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked pre-key %d\n", id)
			return nil
		},
	}
}

// count <user>: how many one-time pre-keys the relay still holds.
func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <user>",
		Short: "Show how many one-time pre-keys the relay holds for this device",
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
			n, err := rc.PreKeyCount(ctx, addressOf(acct))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
