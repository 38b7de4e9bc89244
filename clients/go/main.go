// Chatbot CLI - command line client for the Respoke chatbot server
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/eldtechnologies/respoke-chatbot/clients/go/chatbot"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHATBOT_URL")
	client := chatbot.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		if resp != nil {
			printJSON(resp)
		}
		exitOnError(err)

	case "groups":
		resp, err := client.Groups()
		exitOnError(err)
		for _, g := range resp.Groups {
			fmt.Printf("  %s (%d msgs)\n", g.ID, g.MessageCount)
		}

	case "history":
		groupID := chatbot.DefaultGroup
		if len(os.Args) > 2 {
			groupID = os.Args[2]
		}
		resp, err := client.History(groupID)
		exitOnError(err)
		for _, msg := range resp.Messages {
			ts := time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, msg.From, msg.Body)
		}

	case "say":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chatbot say <from> <message> [group]")
			os.Exit(1)
		}
		groupID := chatbot.DefaultGroup
		if len(os.Args) > 4 {
			groupID = os.Args[4]
		}
		resp, err := client.Say(groupID, os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("Delivered: %s\n", resp.EventID)

	case "connect", "disconnect":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: chatbot %s <endpoint_id>\n", cmd)
			os.Exit(1)
		}
		resp, err := client.Presence(os.Args[2], cmd == "connect")
		exitOnError(err)
		fmt.Printf("Delivered: %s\n", resp.EventID)

	case "token":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: chatbot token <endpoint_id>")
			os.Exit(1)
		}
		resp, err := client.Token(os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Chatbot CLI - Respoke chatbot server client

Usage: chatbot <command> [options]

Commands:
  say <from> <message> [group]   Simulate a group message (default group: people)
  history [group]                Read stored group history
  groups                         List groups with history
  connect <endpoint_id>          Simulate an endpoint logging on
  disconnect <endpoint_id>       Simulate an endpoint logging off
  token <endpoint_id>            Request a Respoke token for an endpoint
  health                         Check server health

Environment:
  CHATBOT_URL   Server URL (default: http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
