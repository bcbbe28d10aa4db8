package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the local reminder driver",
	Long: `Scan tasks every 30 minutes and email a reminder for each task that is
23.5-24 hours away from its due instant. Only needed in local mode: with the
backend active the server runs the same sweep and this command exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		if sess.UseBackend() {
			fmt.Println("Backend mode is active: the server sends reminders, nothing to do.")
			return nil
		}
		if sess.Email() == "" {
			return fmt.Errorf("no email saved, run 'todo email <address>' first")
		}

		sess.StartReminders(ctx, newEmailJSMailer())
		fmt.Println("Watching for due tasks (scan every 30 minutes). Ctrl+C to stop.")

		<-ctx.Done()
		sess.StopReminders()
		fmt.Println("Stopped.")
		return nil
	},
}
