package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/rendezvous/clients/go/rendezvous"
)

var recvCmd = &cobra.Command{
	Use:   "recv <room> <peer>",
	Short: "Read the next message without waiting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, ok, err := newClient().Receive(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "no message")
			return nil
		}
		fmt.Println(content)
		return nil
	},
}

var flagWait time.Duration

var waitCmd = &cobra.Command{
	Use:   "wait <room> <peer>",
	Short: "Wait for the next message",
	Long: `Poll until a message arrives, the wait time runs out, or another peer
ends the session.

Examples:
  rendezvous wait r1 1234567890
  rendezvous wait r1 1234567890 --for 2m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), flagWait)
		defer cancel()

		sess := rendezvous.Attach(newClient(), args[0], args[1])
		sig, err := sess.Receive(ctx)
		if errors.Is(err, rendezvous.ErrSessionClosed) {
			fmt.Fprintln(os.Stderr, "session closed by peer")
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no message within %s", flagWait)
		}
		if err != nil {
			return err
		}
		fmt.Println(sig.Raw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recvCmd)
	rootCmd.AddCommand(waitCmd)

	waitCmd.Flags().DurationVar(&flagWait, "for", time.Minute, "How long to wait")
}
