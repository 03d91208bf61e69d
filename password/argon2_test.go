package password

import (
	"errors"
	"strings"
	"testing"
)

func secureConfig() Config {
	return Config{
		Memory:      MinMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, secureConfig())

	hash, err := h.Hash("Correct-h0rse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	ok, err := h.Verify("Correct-h0rse", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("Wrong-h0rse", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t, secureConfig())

	a, err := h.Hash("Correct-h0rse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("Correct-h0rse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("expected two hashes of one password to differ")
	}
}

func TestHashEmptyPassword(t *testing.T) {
	h := newTestHasher(t, secureConfig())
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t, secureConfig())
	good, err := h.Hash("Correct-h0rse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(good, "$")

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"empty", "", ErrInvalidHash},
		{"garbage", "not-a-hash", ErrInvalidHash},
		{"other algorithm", strings.Replace(good, "argon2id", "argon2i", 1), ErrInvalidHash},
		{"old version", strings.Replace(good, "v=19", "v=16", 1), ErrIncompatibleVersion},
		{"bad params", strings.Replace(good, parts[3], "m=x,t=1,p=1", 1), ErrInvalidHash},
		{"zero memory", strings.Replace(good, parts[3], "m=0,t=1,p=1", 1), ErrInvalidHash},
		{"bad salt", strings.Replace(good, parts[4], "!!!", 1), ErrInvalidHash},
		{"missing key", strings.TrimSuffix(good, parts[5]), ErrInvalidHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify("Correct-h0rse", tt.hash)
			if ok {
				t.Fatal("malformed hash must not verify")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNeedsRehashWeakerParameters(t *testing.T) {
	weak := newTestHasher(t, secureConfig())
	hash, err := weak.Hash("Correct-h0rse")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if weak.NeedsRehash(hash) {
		t.Fatal("hash made with the current config must not need rehash")
	}

	stronger := secureConfig()
	stronger.Time = 2
	if !newTestHasher(t, stronger).NeedsRehash(hash) {
		t.Fatal("expected higher time cost to require rehash")
	}

	longerKey := secureConfig()
	longerKey.KeyLength = 64
	if !newTestHasher(t, longerKey).NeedsRehash(hash) {
		t.Fatal("expected a different key length to require rehash")
	}

	// Verification uses the parameters embedded in the hash.
	ok, err := newTestHasher(t, stronger).Verify("Correct-h0rse", hash)
	if err != nil || !ok {
		t.Fatalf("expected old hash to verify under new config, ok=%v err=%v", ok, err)
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	tests := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = MinMemoryKB - 1 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := secureConfig()
			mutate(&cfg)
			if _, err := NewHasher(cfg); err == nil {
				t.Fatalf("expected %s below the floor to be rejected", name)
			}
		})
	}
}
