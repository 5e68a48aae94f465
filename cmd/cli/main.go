package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/slange/storefront/internal/cli"
	"github.com/slange/storefront/internal/flagx"
	"github.com/slange/storefront/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	args := flagx.Positional(os.Args[1:], config.ValueFlags())
	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}

}
