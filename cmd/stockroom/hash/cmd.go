package hash

import (
	"fmt"
	"os"

	"github.com/andrebq/stockroom/auth"
	"github.com/andrebq/stockroom/internal/cmdflags"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var algorithm string
	var cost int
	return &cli.Command{
		Name:  "hash",
		Usage: "Print the hash of a password read from stdin, ready to be stored in the users table",
		Flags: []cli.Flag{
			cmdflags.HashAlgorithm(&algorithm),
			cmdflags.HashCost(&cost),
		},
		Action: func(ctx *cli.Context) error {
			password, err := cmdflags.SecretFromReader(os.Stdin)
			if err != nil {
				return err
			}
			hasher, err := auth.NewPasswordHasher(auth.Algorithm(algorithm), cost)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, hash)
			return nil
		},
	}
}
