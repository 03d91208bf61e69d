package password

// Hasher is the engine-facing password hasher. New hashes are always
// argon2id; Verify also accepts legacy bcrypt hashes. It is safe for
// concurrent use.
type Hasher struct {
	cfg Config
}

// NewHasher validates cfg against the minimum cost floor.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash returns an argon2id PHC string for password. The password bytes are
// used exactly as given.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := newArgon2Hash(h.cfg, password)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// Verify checks password against an argon2id or bcrypt hash. A malformed
// hash is an error; a mismatch is (false, nil).
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}
	decoded, err := decodeArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	return decoded.matches(password), nil
}

// NeedsRehash reports whether a verified hash should be replaced: every
// bcrypt hash, and argon2id hashes with weaker parameters. Unparseable
// hashes report false.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return true
	}
	decoded, err := decodeArgon2(encodedHash)
	if err != nil {
		return false
	}
	return decoded.weakerThan(h.cfg)
}
