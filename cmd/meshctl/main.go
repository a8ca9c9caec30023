package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/meshctl/internal/cli"
	"github.com/danmuck/meshctl/internal/config"
	"github.com/danmuck/meshctl/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "meshctl.toml", "path to the TOML config file")
		initConfig = flag.Bool("init-config", false, "write a starter config file and exit")
		sendText   = flag.String("send", "", "text message to send once the session is ready")
		dest       = flag.String("dest", "broadcast", "destination: broadcast, a node number, or a !hex node id")
		wantAck    = flag.Bool("ack", false, "request a delivery acknowledgement")
		watch      = flag.Bool("watch", false, "keep running and print mesh events")
	)
	flag.Parse()

	logging.ConfigureRuntime()

	if *initConfig {
		if err := config.WriteTemplate(*configPath, false); err != nil {
			fmt.Fprintf(os.Stderr, "meshctl: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshctl: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.New(cfg)
	opts := cli.RunOptions{
		SendText: *sendText,
		Dest:     *dest,
		WantAck:  *wantAck,
		Watch:    *watch,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "meshctl: %v\n", err)
		os.Exit(1)
	}
}
