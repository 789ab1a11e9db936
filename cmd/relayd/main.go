package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/joho/godotenv"

	"github.com/padsync/padsync/internal/relay"
)

const RelaydVersion = "0.1.0"

func main() {
	usage := `Operation relay daemon.

Usage:
    relayd [--listen=<addr>]
    relayd -h | --help
    relayd --version

Options:
    --listen=<addr>  Listen address [default: 127.0.0.1:8090].
    -h --help        Show this screen.
    --version        Show version.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], RelaydVersion)
	if err != nil {
		panic(err)
	}

	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse([]string{})

	// optional .env next to the binary, env vars win over the default
	// but lose to an explicit flag
	godotenv.Load()

	addr, _ := opts.String("--listen")
	if env := os.Getenv("RELAYD_LISTEN"); env != "" && !given(os.Args[1:], "--listen") {
		addr = env
	}

	srv := &http.Server{
		Handler: relay.NewServer().Router(),
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	glog.Infof("relayd listening on %s", addr)
	glog.Fatal(srv.ListenAndServe())
}

func given(args []string, flagName string) bool {
	for _, a := range args {
		if a == flagName || len(a) > len(flagName) && a[:len(flagName)+1] == flagName+"=" {
			return true
		}
	}
	return false
}
