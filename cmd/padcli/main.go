package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"github.com/sanity-io/litter"

	"github.com/padsync/padsync/internal/doc"
	"github.com/padsync/padsync/internal/session"
)

const PadCliVersion = "0.1.0"

func main() {
	usage := `Collaborative pad client.

Reads lines from stdin. A plain line replaces the pad text; commands:
    :undo   :redo   :dump   :quit

Usage:
    padcli --agent=<id> [--url=<ws_url>] [--room=<room>] [--undo]
    padcli -h | --help
    padcli --version

Options:
    --agent=<id>    Agent identity for generated operations.
    --url=<ws_url>  Relay websocket url, e.g. ws://127.0.0.1:8090/ws/pad.
    --room=<room>   Room to join [default: pad].
    --undo          Enable the undo manager.
    -h --help       Show this screen.
    --version       Show version.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], PadCliVersion)
	if err != nil {
		panic(err)
	}

	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse([]string{})
	godotenv.Load()

	agent, _ := opts.String("--agent")
	url, _ := opts.String("--url")
	room, _ := opts.String("--room")
	undo, _ := opts.Bool("--undo")

	d := doc.NewTextDoc(agent)
	reg := session.NewRegistry()
	sess, err := reg.Open(d, session.Config{
		AgentID:      agent,
		UndoManager:  undo,
		WebsocketURL: url,
		RoomID:       room,
	}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sess.Dispose()

	litter.Config.HidePrivateFields = false

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch line := scanner.Text(); line {
		case ":quit":
			return
		case ":undo":
			if !sess.Undo() {
				fmt.Println("nothing to undo")
			}
		case ":redo":
			if !sess.Redo() {
				fmt.Println("nothing to redo")
			}
		case ":dump":
			litter.Dump(map[string]any{
				"handle":   sess.Handle(),
				"state":    sess.State(),
				"frontier": sess.Frontier(),
				"text":     sess.Text(),
			})
			continue
		default:
			sess.SetText(line)
		}
		fmt.Printf("> %q\n", sess.Text())
	}
}
