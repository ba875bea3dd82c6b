// Package auth turns a login and a password into a server side session
// and validates that session on every later request.
//
// The password is never kept anywhere, only a salted hash of it lives in
// the credential store (bcrypt by default, argon2id when configured).
// Verification always compares in constant time and a lookup for an
// unknown login still pays the cost of a hash verification, so neither the
// response nor its timing tells an adversary which logins exist.
//
// Sessions are kept in memory by Sessions. A token is 32 random bytes,
// encoded as base64url, and the only thing the client ever holds.
// If the token is lost the user must login again; tokens are lost when
// they expire, when the user logs out, or when the service restarts.
package auth
