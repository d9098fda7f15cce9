package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmoratto/storefront-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = fmt.Errorf("invalid argon2id hash")

// Hasher derives and verifies Argon2id password hashes. The parameters are
// embedded into each encoded hash so old hashes stay verifiable after a
// parameter change.
type Hasher struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

// NewHasher builds a Hasher from config, clamping each parameter into a
// sane operating range.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{
		memory:      clampUint32(cfg.ArgonMemoryKB, 8, 512*1024),
		time:        clampUint32(cfg.ArgonTime, 1, 10),
		parallelism: uint8(clampInt(cfg.ArgonParallelism, 1, 255)),
		saltLen:     clampUint32(cfg.ArgonSaltLen, 8, 64),
		keyLen:      clampUint32(cfg.ArgonKeyLen, 16, 64),
	}
}

// Hash returns a formatted Argon2id hash for the provided password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.parallelism, h.keyLen)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		h.memory, h.time, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify reports whether the password matches the encoded hash. The
// comparison is constant time; a mismatch is not an error.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	memory, times, threads, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, times, memory, threads, uint32(len(want)))

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func decodeHash(encoded string) (memory, times uint32, threads uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	for _, token := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			return 0, 0, 0, nil, nil, ErrInvalidHash
		}
		switch kv[0] {
		case "m":
			v, perr := strconv.ParseUint(kv[1], 10, 32)
			if perr != nil {
				return 0, 0, 0, nil, nil, ErrInvalidHash
			}
			memory = uint32(v)
		case "t":
			v, perr := strconv.ParseUint(kv[1], 10, 32)
			if perr != nil {
				return 0, 0, 0, nil, nil, ErrInvalidHash
			}
			times = uint32(v)
		case "p":
			v, perr := strconv.ParseUint(kv[1], 10, 8)
			if perr != nil {
				return 0, 0, 0, nil, nil, ErrInvalidHash
			}
			threads = uint8(v)
		}
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}

	return memory, times, threads, salt, key, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampUint32(value, min, max int) uint32 {
	return uint32(clampInt(value, min, max))
}
