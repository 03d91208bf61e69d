package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Minimum cost accepted for new hashes.
const (
	MinMemoryKB   uint32 = 8 * 1024
	MinTime       uint32 = 1
	MinSaltLength uint32 = 16
	MinKeyLength  uint32 = 16
)

var (
	// ErrEmptyPassword is returned by Hash for an empty password.
	ErrEmptyPassword = errors.New("password: empty password")
	// ErrInvalidHash is returned when a stored hash is not a recognised PHC string.
	ErrInvalidHash = errors.New("password: invalid hash format")
	// ErrIncompatibleVersion is returned for argon2 versions other than 0x13.
	ErrIncompatibleVersion = errors.New("password: incompatible argon2 version")
)

var b64 = base64.RawStdEncoding

// Config holds the argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (c Config) validate() error {
	switch {
	case c.Memory < MinMemoryKB:
		return fmt.Errorf("password: memory must be >= %d KB", MinMemoryKB)
	case c.Time < MinTime:
		return fmt.Errorf("password: time must be >= %d", MinTime)
	case c.Parallelism < 1:
		return errors.New("password: parallelism must be >= 1")
	case c.SaltLength < MinSaltLength:
		return fmt.Errorf("password: salt length must be >= %d", MinSaltLength)
	case c.KeyLength < MinKeyLength:
		return fmt.Errorf("password: key length must be >= %d", MinKeyLength)
	}
	return nil
}

// argon2Hash is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type argon2Hash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func newArgon2Hash(cfg Config, password string) (*argon2Hash, error) {
	salt := make([]byte, cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return &argon2Hash{
		memory:  cfg.Memory,
		time:    cfg.Time,
		threads: cfg.Parallelism,
		salt:    salt,
		key:     argon2.IDKey([]byte(password), salt, cfg.Time, cfg.Memory, cfg.Parallelism, cfg.KeyLength),
	}, nil
}

func (h *argon2Hash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

// matches recomputes the key for password with h's own parameters.
func (h *argon2Hash) matches(password string) bool {
	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1
}

// weakerThan reports whether h was produced with a lower cost than cfg.
func (h *argon2Hash) weakerThan(cfg Config) bool {
	return h.memory < cfg.Memory ||
		h.time < cfg.Time ||
		h.threads < cfg.Parallelism ||
		uint32(len(h.key)) != cfg.KeyLength
}

func decodeArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, ErrIncompatibleVersion
	}

	h := &argon2Hash{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return nil, ErrInvalidHash
	}
	if h.memory == 0 || h.time == 0 || h.threads == 0 {
		return nil, ErrInvalidHash
	}

	var err error
	if h.salt, err = b64.Strict().DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return nil, ErrInvalidHash
	}
	if h.key, err = b64.Strict().DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return nil, ErrInvalidHash
	}
	return h, nil
}
