package cmdflags

import (
	"bufio"
	"io"
)

// SecretFromReader reads a single line from r, usually stdin. Only the
// line terminator is removed, surrounding spaces are part of the secret.
func SecretFromReader(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if sc.Err() != nil {
			return "", sc.Err()
		}
		return "", errEmptySecret
	}
	// ScanLines already drops "\n" and a trailing "\r"
	secret := sc.Text()
	if len(secret) == 0 {
		return "", errEmptySecret
	}
	return secret, nil
}

// Secret reads from the environment variable when one is named, and from
// r otherwise.
func Secret(envvar string, r io.Reader) (string, error) {
	if envvar != "" {
		return SecretFromEnv(envvar, nil, nil)
	}
	return SecretFromReader(r)
}
