// Command autocomplete-client sends stdin lines to an autocomplete server and prints
// every response line.
//
//	autocomplete-client -host 127.0.0.1 -port 10000
//	get app
//	-> apply
//	-> app
//	-> apple
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bastiangx/autocomplete/internal/cli"
	"github.com/bastiangx/autocomplete/internal/logger"
	"github.com/charmbracelet/log"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Server host")
	port := flag.Int("port", 10000, "Server port")
	timeout := flag.Duration("timeout", 5*time.Second, "Connect timeout")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	flag.Parse()

	logger.Setup("warn", *debugMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	client, err := cli.Dial(ctx, addr, *timeout, logger.New("client"))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer client.Close()

	if err := client.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Errorf("%v", err)
		client.Close()
		os.Exit(1)
	}
}
