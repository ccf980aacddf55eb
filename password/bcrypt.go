package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptPrefixes are the modular-crypt identifiers produced by bcrypt
// implementations the legacy user table was written with.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// IsBcrypt reports whether encodedHash is a bcrypt modular-crypt string.
func IsBcrypt(encodedHash string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(encodedHash, p) {
			return true
		}
	}
	return false
}

// verifyBcrypt checks password+pepper against a legacy bcrypt hash.
func verifyBcrypt(password, pepper, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password+pepper))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, err
	}
}
