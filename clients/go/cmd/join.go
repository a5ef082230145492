package cmd

import (
	"github.com/spf13/cobra"
)

var flagPeerID string

var joinCmd = &cobra.Command{
	Use:   "join <room>",
	Short: "Join a room as a new peer",
	Long: `Join a room, creating it if needed, and print the new peer's id and
whether it was elected initiator.

Examples:
  rendezvous join r1
  rendezvous join r1 --peer-id alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().Join(cmd.Context(), args[0], flagPeerID)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagPeerID, "peer-id", "p", "", "Join under this peer id instead of a generated one")
}
