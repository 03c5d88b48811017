package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	token   string
	timeout time.Duration
)

// rootCmd drives a running API the way the web client would.
var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive profiling and group rooms against a running server",
	Long: `Simulate talks to a running trawell-be instance over HTTP.

Available subcommands:
  profile - answer every profiling question with scripted answers
  group   - open a room for two travelers and chat in it`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:3000/api", "API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token; empty means anonymous")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "per request timeout")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(groupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
