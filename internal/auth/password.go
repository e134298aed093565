package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordScheme    = "pbkdf2_sha256"
	DefaultIterations = 600_000
	saltSize          = 16
	keySize           = sha256.Size
)

var (
	ErrEmptyPassword     = errors.New("password must be a non-empty string")
	ErrInvalidHashFormat = errors.New("invalid password hash format")
)

// Hasher derives and checks PBKDF2-HMAC-SHA256 password hashes stored as
// scheme$iterations$salt$digest.
type Hasher struct {
	Iterations int
}

func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{Iterations: iterations}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(password), salt, h.Iterations, keySize, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		passwordScheme, h.Iterations, hex.EncodeToString(salt), hex.EncodeToString(digest)), nil
}

// Verify never fails loudly: a malformed stored hash simply does not match.
func (h *Hasher) Verify(password, stored string) bool {
	iterations, salt, expected, err := splitHash(stored)
	if err != nil {
		return false
	}
	candidate := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return hmac.Equal(candidate, expected)
}

// NeedsRehash treats an unparseable hash as the weakest case.
func (h *Hasher) NeedsRehash(stored string) bool {
	iterations, _, _, err := splitHash(stored)
	if err != nil {
		return true
	}
	return iterations < h.Iterations
}

func (h *Hasher) Rehash(password, stored string) (string, error) {
	if !h.NeedsRehash(stored) {
		return stored, nil
	}
	return h.Hash(password)
}

func splitHash(stored string) (int, []byte, []byte, error) {
	parts := strings.SplitN(stored, "$", 4)
	if len(parts) != 4 || parts[0] != passwordScheme {
		return 0, nil, nil, ErrInvalidHashFormat
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, ErrInvalidHashFormat
	}

	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return 0, nil, nil, ErrInvalidHashFormat
	}

	digest, err := hex.DecodeString(parts[3])
	if err != nil || len(digest) == 0 {
		return 0, nil, nil, ErrInvalidHashFormat
	}

	return iterations, salt, digest, nil
}
