package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/eldtechnologies/rendezvous/clients/go/rendezvous"
)

var flagJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <room>",
	Short: "Show the peers and archived messages of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := newClient().Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(info)
		}
		renderRoom(info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&flagJSON, "json", false, "Print raw JSON")
}

func renderRoom(info *rendezvous.RoomInfo) {
	fmt.Printf("Room %s, created %s\n", info.ID, info.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	peers := table.NewWriter()
	peers.SetOutputMirror(os.Stdout)
	peers.SetStyle(table.StyleLight)
	peers.AppendHeader(table.Row{"Peer", "Initiator", "Unread", "Read"})
	for _, p := range info.Peers {
		initiator := ""
		if p.IsInitiator {
			initiator = "yes"
		}
		peers.AppendRow(table.Row{p.ID, initiator, p.Unread, p.Read})
	}
	peers.Render()

	if len(info.Messages) == 0 {
		fmt.Println("No messages")
		return
	}

	msgs := table.NewWriter()
	msgs.SetOutputMirror(os.Stdout)
	msgs.SetStyle(table.StyleLight)
	msgs.AppendHeader(table.Row{"#", "ID", "From", "Type"})
	for i, m := range info.Messages {
		msgs.AppendRow(table.Row{i + 1, m.ID, m.From, m.Type})
	}
	msgs.Render()
}
