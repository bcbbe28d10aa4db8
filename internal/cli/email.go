package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var emailCmd = &cobra.Command{
	Use:   "email [address]",
	Short: "Save the reminder email address",
	Long: `Save the address reminders are sent to. The address is stored locally
and registered on the backend when it is reachable; in that case the server
takes over reminder delivery.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		backendEnabled, err := sess.SetEmail(ctx, args[0])
		if err != nil {
			return err
		}

		if backendEnabled {
			fmt.Println("Email saved. Server reminders 1 day before are enabled.")
		} else {
			fmt.Println("Email saved locally. Client reminders will be used (run 'todo watch').")
		}
		return nil
	},
}
