package session

import (
	"encoding/json"
	"errors"
)

const maxEncodedSize = 4096

var (
	// ErrSessionCorrupt is returned by Decode for records that cannot be trusted.
	ErrSessionCorrupt = errors.New("session record corrupt")
)

func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.UserID == "" {
		return nil, errors.New("session requires a user id")
	}
	if s.CSRFToken == "" {
		return nil, errors.New("session requires a csrf token")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if len(data) > maxEncodedSize {
		return nil, errors.New("session record too large")
	}
	return data, nil
}

func Decode(data []byte) (*Session, error) {
	if len(data) == 0 || len(data) > maxEncodedSize {
		return nil, ErrSessionCorrupt
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ErrSessionCorrupt
	}
	if s.UserID == "" || s.CSRFToken == "" {
		return nil, ErrSessionCorrupt
	}
	return &s, nil
}
