package util

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
)

func SHA256HexFromReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

// HashPassword returns the stored form of a password. The user table keeps
// SHA-256 hexdigests.
func HashPassword(password string) string {
	return SHA256Hex([]byte(password))
}

func CheckPassword(password, storedHash string) bool {
	h := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(h), []byte(storedHash)) == 1
}
