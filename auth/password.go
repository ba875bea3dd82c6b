package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type (
	Algorithm string

	Argon2Params struct {
		Time    uint32
		Memory  uint32
		Threads uint8
		SaltLen uint32
		KeyLen  uint32
	}

	// PasswordHasher produces new hashes with a single algorithm but
	// verifies any hash it knows how to parse, so changing the algorithm
	// does not lock out existing accounts.
	PasswordHasher struct {
		algorithm  Algorithm
		bcryptCost int
		argon      Argon2Params
		entropy    io.Reader

		decoyOnce sync.Once
		decoyHash string
		decoyErr  error
	}
)

const (
	Bcrypt   Algorithm = "bcrypt"
	Argon2id Algorithm = "argon2id"

	DefaultBcryptCost = 10

	// bcrypt only looks at the first 72 bytes
	maxBcryptInput = 72

	argon2Prefix = "$argon2id$"

	// salt and digest of a well formed bcrypt hash, the cost is taken
	// from the hasher
	fixedBcryptDecoy = "N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

var (
	errUnknownHashFormat = errors.New("unknown hash format")
	errMalformedArgon2   = errors.New("malformed argon2id hash")
)

// DefaultArgon2Params trades memory for passes: 7 passes over 10 MB
// is a good replacement for 1 pass over 64 MB of ram.
func DefaultArgon2Params() Argon2Params {
	threads := runtime.NumCPU() / 2
	if threads < 1 {
		threads = 1
	} else if threads > 255 {
		threads = 255
	}
	return Argon2Params{
		Time:    7,
		Memory:  10 * 1024,
		Threads: uint8(threads),
		SaltLen: 16,
		KeyLen:  32,
	}
}

// NewPasswordHasher returns a hasher for the given algorithm, cost is
// only used by bcrypt and zero selects DefaultBcryptCost.
func NewPasswordHasher(algorithm Algorithm, cost int) (*PasswordHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	switch algorithm {
	case "", Bcrypt:
		algorithm = Bcrypt
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("auth: bcrypt cost must be between %v and %v, got %v", bcrypt.MinCost, bcrypt.MaxCost, cost)
		}
	case Argon2id:
	default:
		return nil, fmt.Errorf("auth: unsupported hash algorithm %q", algorithm)
	}
	return &PasswordHasher{
		algorithm:  algorithm,
		bcryptCost: cost,
		argon:      DefaultArgon2Params(),
		entropy:    rand.Reader,
	}, nil
}

func (h *PasswordHasher) Algorithm() Algorithm { return h.algorithm }

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	switch h.algorithm {
	case Argon2id:
		return h.hashArgon2(plaintext)
	default:
		buf, err := bcrypt.GenerateFromPassword(clampBcrypt(plaintext), h.bcryptCost)
		if err != nil {
			return "", HashingError{cause: err}
		}
		return string(buf), nil
	}
}

// Verify reports whether plaintext matches hash. A hash that was not
// produced by Hash results in a HashingError, callers must treat it as
// a failed verification.
func (h *PasswordHasher) Verify(plaintext, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return verifyArgon2(plaintext, hash)
	case strings.HasPrefix(hash, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), clampBcrypt(plaintext))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		} else if err != nil {
			return false, HashingError{cause: err}
		}
		return true, nil
	}
	return false, HashingError{cause: errUnknownHashFormat}
}

// decoy returns a valid hash that no password submitted by a user is
// expected to match. Verifying against it costs the same as verifying a
// real account hashed with the configured algorithm.
//
// When a random decoy cannot be produced the error is returned together
// with a fixed hash of the same algorithm and cost, so the caller can
// still spend the same amount of work.
func (h *PasswordHasher) decoy() (string, error) {
	h.decoyOnce.Do(func() {
		var seed [16]byte
		_, err := io.ReadFull(h.entropy, seed[:])
		if err == nil {
			h.decoyHash, err = h.Hash(base64.RawStdEncoding.EncodeToString(seed[:]))
		}
		if err != nil {
			h.decoyErr = err
			h.decoyHash = h.fixedDecoy()
		}
	})
	return h.decoyHash, h.decoyErr
}

func (h *PasswordHasher) fixedDecoy() string {
	if h.algorithm == Argon2id {
		p := h.argon
		salt := make([]byte, p.SaltLen)
		return encodeArgon2(p, salt, argon2.IDKey(nil, salt, p.Time, p.Memory, p.Threads, p.KeyLen))
	}
	return fmt.Sprintf("$2a$%02d$%v", h.bcryptCost, fixedBcryptDecoy)
}

func (h *PasswordHasher) hashArgon2(plaintext string) (string, error) {
	p := h.argon
	salt := make([]byte, p.SaltLen)
	if _, err := io.ReadFull(h.entropy, salt); err != nil {
		return "", HashingError{cause: err}
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return encodeArgon2(p, salt, key), nil
}

func encodeArgon2(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("%vv=%d$m=%d,t=%d,p=%d$%v$%v",
		argon2Prefix, argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func verifyArgon2(plaintext, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return false, HashingError{cause: errMalformedArgon2}
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, HashingError{cause: errMalformedArgon2}
	}
	var p Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return false, HashingError{cause: errMalformedArgon2}
	}
	if p.Time < 1 || p.Threads < 1 || p.Memory < 1 {
		return false, HashingError{cause: errMalformedArgon2}
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, HashingError{cause: err}
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, HashingError{cause: err}
	} else if len(expected) == 0 {
		return false, HashingError{cause: errMalformedArgon2}
	}
	actual := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func clampBcrypt(plaintext string) []byte {
	buf := []byte(plaintext)
	if len(buf) > maxBcryptInput {
		buf = buf[:maxBcryptInput]
	}
	return buf
}
