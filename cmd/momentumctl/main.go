package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmermels/momentum-spark-app/internal/client"
	"github.com/danmermels/momentum-spark-app/internal/motivation"
)

var Version = "dev"

const defaultServerURL = "http://localhost:9002"

// app holds what every subcommand needs once the flags are parsed.
type app struct {
	api       *client.Client
	store     *client.Store
	settings  *client.SettingsStore
	generator motivation.Generator
	out       io.Writer
	now       func() time.Time
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{generator: motivation.NewTemplateGenerator(), now: time.Now}

	var serverURL, settingsPath string
	rootCmd := &cobra.Command{
		Use:           "momentumctl",
		Short:         "Track weighted tasks and daily goals from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			a.api = client.New(serverURL, nil)
			a.store = client.NewStore(a.api, client.ReporterFunc(func(title, message string) {
				fmt.Fprintf(errOut, "%s: %s\n", title, message)
			}))
			a.settings = client.NewSettingsStore(settingsPath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("MOMENTUM_URL", defaultServerURL), "Task API base URL")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", envOr("MOMENTUM_SETTINGS", client.DefaultSettingsPath()), "Local settings file")

	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(toggleCmd(a, "done", "Mark a task as completed", true))
	rootCmd.AddCommand(toggleCmd(a, "undo", "Mark a task as pending again", false))
	rootCmd.AddCommand(showCmd(a))
	rootCmd.AddCommand(editCmd(a))
	rootCmd.AddCommand(removeCmd(a))
	rootCmd.AddCommand(progressCmd(a))
	rootCmd.AddCommand(settingsCmd(a))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
