// rendezvous is a command line client for the rendezvous signaling server.
package main

import "github.com/eldtechnologies/rendezvous/clients/go/cmd"

func main() {
	cmd.Execute()
}
