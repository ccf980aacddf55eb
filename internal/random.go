package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const tokenRawSize = 16

// SessionID is the 128-bit random identifier of a session record.
type SessionID [tokenRawSize]byte

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewVerifyToken returns a 128-bit base64url token for the verification flow.
func NewVerifyToken() (string, error) {
	var raw [tokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewCSRFToken returns a random UUIDv4 (122 bits of entropy).
func NewCSRFToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewTemporaryPassword returns the first n hex characters of a random UUIDv4.
// n is capped at 32.
func NewTemporaryPassword(n int) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	if n <= 0 || n > len(hex) {
		n = len(hex)
	}
	return hex[:n], nil
}
