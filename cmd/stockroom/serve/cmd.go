package serve

import (
	"net"
	"os"
	"time"

	"github.com/andrebq/stockroom/auth"
	authapi "github.com/andrebq/stockroom/auth/api"
	"github.com/andrebq/stockroom/internal/cmdflags"
	"github.com/andrebq/stockroom/internal/httpserver"
	"github.com/andrebq/stockroom/internal/logutil"
	"github.com/andrebq/stockroom/inventory"
	"github.com/andrebq/stockroom/inventory/api"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:3000"
	var database string
	var algorithm string
	var cost int
	var ttl time.Duration
	lookupTimeout := auth.DefaultLookupTimeout
	var insecureCookie bool
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the inventory web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind for incoming requests, when unset a PORT variable binds all interfaces on that port",
				EnvVars:     []string{"STOCKROOM_BIND"},
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			cmdflags.Database(&database),
			cmdflags.HashAlgorithm(&algorithm),
			cmdflags.HashCost(&cost),
			cmdflags.SessionTTL(&ttl),
			&cli.DurationFlag{
				Name:        "lookup-timeout",
				Usage:       "Maximum time to wait for the credential store during login",
				Value:       lookupTimeout,
				Destination: &lookupTimeout,
			},
			&cli.BoolFlag{
				Name:        "insecure-cookie",
				Usage:       "Issue session cookies without the Secure attribute (plain http, development only)",
				EnvVars:     []string{"STOCKROOM_INSECURE_COOKIE"},
				Destination: &insecureCookie,
			},
		},
		Action: func(ctx *cli.Context) error {
			log := logutil.GetOrDefault(ctx.Context)
			bindAddr = bindAddress(bindAddr, ctx.IsSet("bind"), os.Getenv("PORT"))
			store, err := inventory.Open(ctx.Context, database)
			if err != nil {
				return err
			}
			defer store.Close()
			log.Info().Str("driver", store.Driver()).Msg("Database ready")

			hasher, err := auth.NewPasswordHasher(auth.Algorithm(algorithm), cost)
			if err != nil {
				return err
			}
			sessions, err := auth.NewSessions(auth.SessionOptions{TTL: ttl})
			if err != nil {
				return err
			}
			defer sessions.Close()

			authenticator := auth.NewAuthenticator(store, hasher, sessions, lookupTimeout)
			realm := authapi.NewRealm(authenticator, "/", insecureCookie)
			handler, err := api.AsHandler(ctx.Context, store, realm)
			if err != nil {
				return err
			}
			return httpserver.Serve(ctx.Context, bindAddr, handler, httpserver.DefaultOptions())
		},
	}
}

// bindAddress honors the PORT convention of hosting platforms unless the
// bind address was given explicitly.
func bindAddress(bind string, explicit bool, port string) string {
	if explicit || port == "" {
		return bind
	}
	return net.JoinHostPort("", port)
}
