package users

import (
	"fmt"
	"os"
	"time"

	"github.com/andrebq/stockroom/auth"
	"github.com/andrebq/stockroom/internal/cmdflags"
	"github.com/andrebq/stockroom/inventory"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var store *inventory.Store
	var database string
	return &cli.Command{
		Name:    "users",
		Aliases: []string{"u"},
		Usage:   "Manage the accounts allowed to login",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
		},
		Before: func(ctx *cli.Context) error {
			var err error
			store, err = inventory.Open(ctx.Context, database)
			return err
		},
		After: func(ctx *cli.Context) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
		Subcommands: []*cli.Command{
			addCmd(&store),
			listCmd(&store),
		},
	}
}

func addCmd(store **inventory.Store) *cli.Command {
	var login string
	var algorithm string
	var cost int
	var passwordEnvVar string
	return &cli.Command{
		Name:  "add",
		Usage: "Register a new user (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "login",
				Aliases:     []string{"l", "email"},
				Usage:       "Login identifier (usually an email) of the new user",
				Destination: &login,
				Required:    true,
			},
			cmdflags.HashAlgorithm(&algorithm),
			cmdflags.HashCost(&cost),
			cmdflags.PasswordEnvVar(&passwordEnvVar),
		},
		Action: func(ctx *cli.Context) error {
			password, err := cmdflags.Secret(passwordEnvVar, os.Stdin)
			if err != nil {
				return err
			}
			hasher, err := auth.NewPasswordHasher(auth.Algorithm(algorithm), cost)
			if err != nil {
				return err
			}
			id, err := auth.Register(ctx.Context, *store, hasher, login, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, id)
			return nil
		},
	}
}

func listCmd(store **inventory.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered users",
		Action: func(ctx *cli.Context) error {
			identities, err := (*store).ListIdentities(ctx.Context)
			if err != nil {
				return err
			}
			for _, i := range identities {
				fmt.Fprintf(ctx.App.Writer, "%v\t%v\t%v\n", i.ID, i.Login, i.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
