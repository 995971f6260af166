package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tzikbal/internal/client/cli"
	"github.com/dmitrijs2005/tzikbal/internal/client/config"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.NewApp(cfg).Run(ctx)
}
