package util

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// RandomBytes returns n cryptographically secure random bytes, used for
// archive salts.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("util: invalid random length")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// passwordAlphabet mixes upper, lower, digits, and symbols; GenPassword
// draws uniformly from it via crypto/rand.
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"0123456789" +
	"-=_+!@#$^&()?<>"

// GenPassword returns a random password of the given length for a newly
// created encrypted archive. The caller prints it once; it is never
// stored anywhere.
func GenPassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("util: invalid password length")
	}
	out := make([]byte, length)
	for i := range out {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[j.Int64()]
	}
	return string(out), nil
}
