package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"regexp"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	alphabetSize      = big.NewInt(int64(len(codeAlphabet)))
)

// GenerateShortCode draws length characters uniformly from [A-Za-z0-9].
func GenerateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("read random index: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeHost strips the port, lowercases and drops a trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	return strings.TrimSuffix(host, ".")
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func checkTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return newError(ErrValidation, "target_url must be an http or https URL")
	}
	return nil
}
