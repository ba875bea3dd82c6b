package cmdflags

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andrebq/stockroom/auth"
	"github.com/urfave/cli/v2"
)

func Database(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "stockroom.db"
	}
	return &cli.StringFlag{
		Name:        "database",
		Aliases:     []string{"db", "d"},
		Usage:       "Path to a sqlite database or a postgres:// url",
		EnvVars:     []string{"DATABASE_URL"},
		Destination: out,
		Value:       *out,
	}
}

func HashAlgorithm(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = string(auth.Bcrypt)
	}
	return &cli.StringFlag{
		Name:        "hash-algorithm",
		Usage:       "Algorithm used for new password hashes (bcrypt or argon2id)",
		EnvVars:     []string{"STOCKROOM_HASH_ALGORITHM"},
		Destination: out,
		Value:       *out,
	}
}

func HashCost(out *int) cli.Flag {
	if *out == 0 {
		*out = auth.DefaultBcryptCost
	}
	return &cli.IntFlag{
		Name:        "hash-cost",
		Usage:       "bcrypt work factor",
		EnvVars:     []string{"STOCKROOM_HASH_COST"},
		Destination: out,
		Value:       *out,
	}
}

func SessionTTL(out *time.Duration) cli.Flag {
	if *out == 0 {
		*out = auth.DefaultSessionTTL
	}
	return &cli.DurationFlag{
		Name:        "session-ttl",
		Usage:       "How long a session remains valid after login",
		EnvVars:     []string{"STOCKROOM_SESSION_TTL"},
		Destination: out,
		Value:       *out,
	}
}

func LogLevel(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "info"
	}
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "Minimum level to log (trace, debug, info, warn, error)",
		EnvVars:     []string{"STOCKROOM_LOG_LEVEL"},
		Destination: out,
		Value:       *out,
	}
}

func LogFormat(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "json"
	}
	return &cli.StringFlag{
		Name:        "log-format",
		Usage:       "Log output format (json or console)",
		EnvVars:     []string{"STOCKROOM_LOG_FORMAT"},
		Destination: out,
		Value:       *out,
	}
}

func PasswordEnvVar(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "password-envvar-name",
		Usage:       "Name of the environment variable that holds the password (stdin is used when empty). The password itself should not be passed as an argument",
		Destination: out,
		Value:       *out,
	}
}

// SecretFromEnv reads varname and clears it, so child processes and
// later readers do not see the secret.
func SecretFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) (string, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	setfn(varname, "")
	if len(val) == 0 {
		return "", fmt.Errorf("cmdflags: environment variable %v is empty", varname)
	}
	return val, nil
}

var errEmptySecret = errors.New("cmdflags: missing secret from stdin")
