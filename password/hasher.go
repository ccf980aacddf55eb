package password

// Hasher produces argon2id hashes and verifies both argon2id and legacy
// bcrypt hashes. Both paths apply the same pepper.
type Hasher struct {
	argon  *Argon2
	pepper string
}

// New validates cfg and returns a [Hasher].
func New(cfg Config) (*Hasher, error) {
	argon, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: argon, pepper: cfg.Pepper}, nil
}

// Hash always produces an argon2id PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

// Verify dispatches on the hash format.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if IsBcrypt(encodedHash) {
		if len(password) > h.argon.config.MaxPasswordBytes {
			return false, ErrPasswordTooLong
		}
		return verifyBcrypt(password, h.pepper, encodedHash)
	}
	return h.argon.Verify(password, encodedHash)
}

// NeedsRehash reports whether encodedHash should be replaced after the next
// successful verification: every bcrypt hash, and argon2id hashes with
// weaker parameters.
func (h *Hasher) NeedsRehash(encodedHash string) (bool, error) {
	if IsBcrypt(encodedHash) {
		return true, nil
	}
	return h.argon.NeedsUpgrade(encodedHash)
}
