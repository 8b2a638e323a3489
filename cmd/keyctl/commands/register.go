package commands

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"keyrelay/internal/domain"
)

// Registration ids are 14-bit and never zero.
func newRegistrationID() domain.RegistrationID {
	return domain.RegistrationID(rand.Uint32N(1<<14-1) + 1)
}

func registerCmd() *cobra.Command {
	var (
		device uint32
		count  int
	)
	cmd := &cobra.Command{
		Use:   "register <user>",
		Short: "Publish this device's keys to the relay",
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
			addr := domain.Address{User: domain.UserID(args[0]), Device: domain.DeviceID(device)}

			regID := newRegistrationID()
			if prev, ok, err := appCtx.Accounts.LoadAccountProfile(cfg.GetString("relay"), addr.User); err != nil {
				return err
			} else if ok && prev.Device == addr.Device {
				regID = prev.RegistrationID
			}

			reg, err := appCtx.PreKeys.BuildRegistration(pass, addr, regID, count)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := rc.RegisterDevice(ctx, reg); err != nil {
				return err
			}

			err = appCtx.Accounts.SaveAccountProfile(domain.AccountProfile{
				ServerURL:      cfg.GetString("relay"),
				Username:       addr.User,
				Device:         addr.Device,
				RegistrationID: regID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with %d one-time pre-keys (signed pre-key %d)\n",
				addr, len(reg.PreKeys), reg.SignedPreKey.ID)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&device, "device", 1, "device id")
	cmd.Flags().IntVar(&count, "count", 100, "number of one-time pre-keys to publish")
	return cmd
}
