package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash that is not in PHC argon2id form.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// Hasher produces and checks argon2id hashes in the PHC string format
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>.
type Hasher struct {
	params argonParams
}

// NewHasher clamps cfg into safe argon2id bounds.
func NewHasher(cfg config.PasswordConfig) Hasher {
	return Hasher{params: argonParams{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}}
}

func (h Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := h.params
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify checks password against encoded. outdated is true when the hash
// matched but was produced with parameters other than the hasher's, so the
// caller can store a fresh hash.
func (h Hasher) Verify(password, encoded string) (match, outdated bool, err error) {
	stored, salt, key, err := parsePHC(encoded)
	if err != nil {
		return false, false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, stored.time, stored.memory, stored.threads, stored.keyLen)
	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return false, false, nil
	}
	return true, stored != h.params, nil
}

func parsePHC(encoded string) (argonParams, []byte, []byte, error) {
	var (
		p       argonParams
		version int
		salt    string
		key     string
	)
	// Sscanf stops %s at whitespace only, so split the two base64 fields by hand.
	var rest string
	if _, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s", &version, &p.memory, &p.time, &p.threads, &rest); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] == '$' {
			salt, key = rest[:i], rest[i+1:]
			break
		}
	}
	saltBytes, err := b64.DecodeString(salt)
	if err != nil || len(saltBytes) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	keyBytes, err := b64.DecodeString(key)
	if err != nil || len(keyBytes) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen = uint32(len(saltBytes))
	p.keyLen = uint32(len(keyBytes))
	return p, saltBytes, keyBytes, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
