package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			_, fp, err := appCtx.Identity.GenerateIdentity(pass)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}
