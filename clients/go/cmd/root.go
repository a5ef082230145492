package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/rendezvous/clients/go/rendezvous"
)

var (
	flagServer  string
	flagTimeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rendezvous",
	Short: "Client for the rendezvous signaling server",
	Long: `rendezvous joins rooms, relays session descriptions and ICE candidates,
and inspects rooms on a rendezvous signaling server.

The server URL defaults to $RENDEZVOUS_URL, then ` + rendezvous.DefaultURL + `.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", os.Getenv("RENDEZVOUS_URL"), "Signaling server URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Request timeout")
}

func newClient() *rendezvous.Client {
	c := rendezvous.NewClient(flagServer)
	c.HTTPClient.Timeout = flagTimeout
	return c
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
