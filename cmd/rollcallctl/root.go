package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/client"
)

var (
	serverURL string
	apiKey    string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "rollcallctl",
	Short: "Manage the rollcall face gallery and attendance ledger",
	Long: `rollcallctl talks to a rollcall API server. It enrolls identities,
bulk-imports them from a manifest, submits frames for recognition and
exports attendance history.

The server and key default to ROLLCALL_URL and ROLLCALL_API_KEY, read from
the environment or a .env file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (default $ROLLCALL_URL or http://localhost:3000)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default $ROLLCALL_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-request timeout")
}

func initConfig() {
	// .env file is optional
	_ = godotenv.Load()

	if serverURL == "" {
		serverURL = os.Getenv("ROLLCALL_URL")
	}
	if serverURL == "" {
		serverURL = "http://localhost:3000"
	}
	if apiKey == "" {
		apiKey = os.Getenv("ROLLCALL_API_KEY")
	}
}

func newClient() *client.Client {
	return client.New(serverURL, apiKey, timeout)
}
