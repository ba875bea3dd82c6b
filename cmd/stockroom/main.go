package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/andrebq/stockroom/cmd/stockroom/hash"
	"github.com/andrebq/stockroom/cmd/stockroom/products"
	"github.com/andrebq/stockroom/cmd/stockroom/serve"
	"github.com/andrebq/stockroom/cmd/stockroom/users"
	"github.com/andrebq/stockroom/internal/cmdflags"
	"github.com/andrebq/stockroom/internal/logutil"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	// a local .env fills in variables such as DATABASE_URL, it never
	// overrides what is already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("Unable to read .env file")
	}
	var logLevel, logFormat string
	app := &cli.App{
		Name:  "stockroom",
		Usage: "Keep track of your inventory, behind a login",
		Flags: []cli.Flag{
			cmdflags.LogLevel(&logLevel),
			cmdflags.LogFormat(&logFormat),
		},
		Before: func(ctx *cli.Context) error {
			return logutil.Setup(logLevel, logFormat, os.Stderr)
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
			products.Cmd(),
			hash.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		cancel()
		os.Exit(1)
	}
}
