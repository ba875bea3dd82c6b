package products

import (
	"fmt"
	"os"

	"github.com/andrebq/stockroom/internal/cmdflags"
	"github.com/andrebq/stockroom/inventory"
	"github.com/andrebq/stockroom/inventory/importer"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var database string
	return &cli.Command{
		Name:    "products",
		Aliases: []string{"p"},
		Usage:   "Bulk operations on products",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
		},
		Subcommands: []*cli.Command{
			importCmd(&database),
		},
	}
}

func importCmd(database *string) *cli.Command {
	var file string
	return &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import products from a csv file with a name,quantity,price[,description] header",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "CSV file to import",
				Required:    true,
				Destination: &file,
			},
		},
		Action: func(ctx *cli.Context) error {
			fd, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fd.Close()
			store, err := inventory.Open(ctx.Context, *database)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := importer.CSV(ctx.Context, store, fd)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "imported %v products\n", n)
			return nil
		},
	}
}
