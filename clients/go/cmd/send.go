package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <room> <peer> <payload|->",
	Short: "Send a payload to the other peers of a room",
	Long: `Send a JSON payload from a peer to every other peer of the room. Use "-"
to read the payload from stdin.

Examples:
  rendezvous send r1 1234567890 '{"type":"offer","sdp":"..."}'
  rendezvous send r1 1234567890 - < offer.json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := args[2]
		if payload == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			payload = string(data)
		}
		return newClient().Send(cmd.Context(), args[0], args[1], payload)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
