package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/herbstore-backend/pkg/config"
)

// ErrInvalidHash signals a malformed argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// Params are the argon2id cost settings encoded into every hash.
type Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// ParamsFromConfig clamps configured costs into sane bounds.
func ParamsFromConfig(cfg config.PasswordConfig) Params {
	return Params{
		Memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		Threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen: uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p Params) weakerThan(o Params) bool {
	return p.Memory < o.Memory || p.Time < o.Time || p.KeyLen < o.KeyLen || p.SaltLen < o.SaltLen
}

// Hasher hashes and checks admin passwords in the PHC argon2id format:
// $argon2id$v=19$m=<kb>,t=<iterations>,p=<threads>$<salt>$<key>
type Hasher struct {
	params Params
	rand   io.Reader
}

func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: ParamsFromConfig(cfg), rand: rand.Reader}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether password matches encoded. The costs stored in the
// hash are used, not the hasher's own.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	return VerifyPassword(password, encoded)
}

// NeedsRehash reports whether encoded was produced with weaker costs than the
// hasher's current settings. Malformed hashes always need a rehash.
func (h *Hasher) NeedsRehash(encoded string) bool {
	d, err := decode(encoded)
	if err != nil {
		return true
	}
	return d.params.weakerThan(h.params)
}

// HashPassword hashes password with the configured costs.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	return NewHasher(cfg).Hash(password)
}

// VerifyPassword compares password against an encoded argon2id hash in
// constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	d, err := decode(encoded)
	if err != nil {
		return false, err
	}
	p := d.params
	computed := argon2.IDKey([]byte(password), d.salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(d.key, computed) == 1, nil
}

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(encoded string) (decodedHash, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return decodedHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return decodedHash{}, ErrInvalidHash
	}

	var d decodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.params.Memory, &d.params.Time, &d.params.Threads); err != nil {
		return decodedHash{}, ErrInvalidHash
	}
	if d.params.Memory == 0 || d.params.Time == 0 || d.params.Threads == 0 {
		return decodedHash{}, ErrInvalidHash
	}

	var err error
	if d.salt, err = b64.DecodeString(parts[4]); err != nil || len(d.salt) == 0 {
		return decodedHash{}, ErrInvalidHash
	}
	if d.key, err = b64.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return decodedHash{}, ErrInvalidHash
	}
	d.params.SaltLen = uint32(len(d.salt))
	d.params.KeyLen = uint32(len(d.key))
	return d, nil
}

func clamp(value, lo, hi int) int {
	return min(max(value, lo), hi)
}
