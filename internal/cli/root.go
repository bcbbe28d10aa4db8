package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sun1tar/todo-reminders/internal/client"
	"github.com/sun1tar/todo-reminders/internal/localstore"
	"github.com/sun1tar/todo-reminders/internal/mailer"
	"github.com/sun1tar/todo-reminders/internal/session"
)

var (
	verbose bool
	rootCmd *cobra.Command

	log = logrus.New()
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "todo",
		Short: "Personal task tracker with due-date email reminders",
		Long: `todo keeps your task list either locally or on a backend server.

With an email saved and the backend reachable, tasks live on the server and
reminders are mailed a day before the due date. Otherwise everything stays in
a local database and 'todo watch' drives the reminders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			log.SetLevel(logrus.WarnLevel)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "todo-reminders"))
		viper.SetDefault("db_path", filepath.Join(home, ".local", "share", "todo-reminders", "tasks.db"))
	} else {
		viper.SetDefault("db_path", "tasks.db")
	}
	viper.SetDefault("backend_url", "http://localhost:4000")

	viper.SetEnvPrefix("TODO")
	viper.AutomaticEnv()

	// Отсутствующий конфиг - нормальное состояние, работают значения по умолчанию
	_ = viper.ReadInConfig()
}

// openSession собирает локальное хранилище, API-клиент и сессию
func openSession(ctx context.Context) (*session.Session, error) {
	store, err := localstore.Open(viper.GetString("db_path"))
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	api := client.NewClient(viper.GetString("backend_url"), 2*time.Second,
		log.WithField("component", "api_client"))

	sess, err := session.Open(ctx, store, api, log.WithField("component", "session"))
	if err != nil {
		store.Close()
		return nil, err
	}
	return sess, nil
}

func newEmailJSMailer() *mailer.EmailJSMailer {
	return mailer.NewEmailJSMailer(mailer.EmailJSConfig{
		PublicKey:  viper.GetString("emailjs.public_key"),
		ServiceID:  viper.GetString("emailjs.service_id"),
		TemplateID: viper.GetString("emailjs.template_id"),
	}, log.WithField("component", "emailjs"))
}

// Execute запускает корневую команду
func Execute(version string) error {
	initConfig()

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(uncompleteCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(emailCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
