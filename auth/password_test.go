package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fastHasher(t *testing.T, algo Algorithm) *PasswordHasher {
	h, err := NewPasswordHasher(algo, bcrypt.MinCost)
	require.NoError(t, err)
	if algo == Argon2id {
		h.argon = Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}
	}
	return h
}

func TestPasswordRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{Bcrypt, Argon2id} {
		t.Run(string(algo), func(t *testing.T) {
			h := fastHasher(t, algo)
			for _, p := range []string{"correct-pw", "", "ünïcødé 密码", strings.Repeat("x", 200)} {
				hash, err := h.Hash(p)
				require.NoError(t, err)
				ok, err := h.Verify(p, hash)
				require.NoError(t, err)
				require.True(t, ok, "password %q should verify against its own hash", p)
			}
		})
	}
}

func TestPasswordMismatch(t *testing.T) {
	for _, algo := range []Algorithm{Bcrypt, Argon2id} {
		t.Run(string(algo), func(t *testing.T) {
			h := fastHasher(t, algo)
			hash, err := h.Hash("correct-pw")
			require.NoError(t, err)
			ok, err := h.Verify("wrong-pw", hash)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestHashIsSalted(t *testing.T) {
	for _, algo := range []Algorithm{Bcrypt, Argon2id} {
		t.Run(string(algo), func(t *testing.T) {
			h := fastHasher(t, algo)
			first, err := h.Hash("correct-pw")
			require.NoError(t, err)
			second, err := h.Hash("correct-pw")
			require.NoError(t, err)
			require.NotEqual(t, first, second)
			require.Len(t, second, len(first))
			for _, hash := range []string{first, second} {
				ok, err := h.Verify("correct-pw", hash)
				require.NoError(t, err)
				require.True(t, ok)
			}
		})
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := fastHasher(t, Bcrypt)
	for _, hash := range []string{
		"",
		"plaintext",
		"$2a$10$tooshort",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	} {
		ok, err := h.Verify("anything", hash)
		require.False(t, ok, "hash %q", hash)
		require.True(t, errors.Is(err, HashingError{}), "hash %q should fail with a hashing error, got %v", hash, err)
	}
}

func TestVerifyAcrossAlgorithms(t *testing.T) {
	bc := fastHasher(t, Bcrypt)
	ar := fastHasher(t, Argon2id)
	bcHash, err := bc.Hash("correct-pw")
	require.NoError(t, err)
	arHash, err := ar.Hash("correct-pw")
	require.NoError(t, err)

	ok, err := ar.Verify("correct-pw", bcHash)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = bc.Verify("correct-pw", arHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewPasswordHasherValidation(t *testing.T) {
	_, err := NewPasswordHasher("md5", 0)
	require.Error(t, err)
	_, err = NewPasswordHasher(Bcrypt, 99)
	require.Error(t, err)
	h, err := NewPasswordHasher("", 0)
	require.NoError(t, err)
	require.Equal(t, Bcrypt, h.Algorithm())
	require.Equal(t, DefaultBcryptCost, h.bcryptCost)
}

func TestArgon2EntropyFailure(t *testing.T) {
	h := fastHasher(t, Argon2id)
	h.entropy = strings.NewReader("short")
	_, err := h.Hash("correct-pw")
	require.True(t, errors.Is(err, HashingError{}))
}

func TestDecoyIsAlwaysVerifiable(t *testing.T) {
	for _, algo := range []Algorithm{Bcrypt, Argon2id} {
		h := fastHasher(t, algo)
		decoy, err := h.decoy()
		require.NoError(t, err)
		match, err := h.Verify("correct-pw", decoy)
		require.NoError(t, err, "algorithm %v", algo)
		require.False(t, match)

		broken := fastHasher(t, algo)
		broken.entropy = strings.NewReader("short")
		decoy, err = broken.decoy()
		require.Error(t, err)
		require.NotEmpty(t, decoy)
		match, err = broken.Verify("correct-pw", decoy)
		require.NoError(t, err, "a fixed decoy must still cost a full verification, algorithm %v", algo)
		require.False(t, match)
		again, _ := broken.decoy()
		require.Equal(t, decoy, again)
	}
}

func TestFixedDecoyFollowsCost(t *testing.T) {
	h := fastHasher(t, Bcrypt)
	cost, err := bcrypt.Cost([]byte(h.fixedDecoy()))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost, cost)
}
