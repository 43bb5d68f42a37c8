package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jaevor/go-nanoid"
	"golang.org/x/crypto/scrypt"
)

// Digests are stored as "scrypt:N:r:p$salt$hex", the layout werkzeug's
// generate_password_hash writes, so digests created by the Flask app still verify.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLength   = 16
	saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ErrMalformedHash is returned when a stored digest cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

// HashPassword derives a salted scrypt digest for password.
func HashPassword(password string) (string, error) {
	genSalt, err := nanoid.CustomASCII(saltAlphabet, saltLength)
	if err != nil {
		return "", fmt.Errorf("salt generator: %w", err)
	}
	salt := genSalt()

	key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return fmt.Sprintf("scrypt:%d:%d:%d$%s$%s", scryptN, scryptR, scryptP, salt, hex.EncodeToString(key)), nil
}

// CheckPassword reports whether password matches the stored digest.
func CheckPassword(password, hash string) bool {
	ok, err := verifyPassword(password, hash)
	return err == nil && ok
}

func verifyPassword(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 3 {
		return false, ErrMalformedHash
	}
	method, salt, digest := parts[0], parts[1], parts[2]

	params := strings.Split(method, ":")
	if len(params) != 4 || params[0] != "scrypt" {
		return false, ErrMalformedHash
	}
	n, errN := strconv.Atoi(params[1])
	r, errR := strconv.Atoi(params[2])
	p, errP := strconv.Atoi(params[3])
	if errN != nil || errR != nil || errP != nil {
		return false, ErrMalformedHash
	}

	want, err := hex.DecodeString(digest)
	if err != nil || len(want) == 0 {
		return false, ErrMalformedHash
	}

	got, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, len(want))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
