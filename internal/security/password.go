package security

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes of its input.
const bcryptMaxInput = 72

// passwordInput returns the bytes fed to bcrypt. Longer passwords are
// reduced to a base64 SHA-256 digest so every byte still counts.
func passwordInput(plain string) []byte {
	if len(plain) <= bcryptMaxInput {
		return []byte(plain)
	}

	sum := sha256.Sum256([]byte(plain))

	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword hashes a plain text password with bcrypt. The salt is embedded
// in the returned hash.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordInput(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.
// bcrypt re-derives the hash and compares in constant time.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), passwordInput(plain))
}

// dummyHash is compared against when the username does not exist so a miss
// costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timeledger-dummy-password"), bcrypt.DefaultCost)

func BurnCompare(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, passwordInput(plain))
}
