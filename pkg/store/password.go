package store

import (
	"crypto/rand"

	descrypt "github.com/digitive/crypt"
)

const cryptAlphabet = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// HashPassword produces a new salted crypt(3) hash for a freshly created or
// changed password, in the "player create/@newpassword" flow.
func HashPassword(password string) (string, error) {
	salt, err := randomSalt()
	if err != nil {
		return "", err
	}
	return descrypt.Crypt(password, salt)
}

// VerifyPassword checks a plaintext password against a stored crypt(3)
// hash, extracting the salt from the hash's first two characters.
func VerifyPassword(password, hash string) bool {
	if len(hash) < 2 {
		return false
	}
	computed, err := descrypt.Crypt(password, hash[:2])
	return err == nil && computed == hash
}

func randomSalt() (string, error) {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return string([]byte{
		cryptAlphabet[int(buf[0])%len(cryptAlphabet)],
		cryptAlphabet[int(buf[1])%len(cryptAlphabet)],
	}), nil
}
