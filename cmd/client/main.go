package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/blogauth/internal/client/apiclient"
	"github.com/dmitrijs2005/blogauth/internal/client/cli"
	"github.com/dmitrijs2005/blogauth/internal/client/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(cfg.ServerURL, cfg.RequestTimeout)
	cli.NewApp(api, os.Stdin, os.Stdout).Run(ctx)

}
