package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yetla/redirector/internal/models"
)

const SessionCookieName = "yetla_session"

// SessionCodec signs session payloads as base64url(json).base64url(hmac_sha256(secret, json)).
type SessionCodec struct {
	secret []byte
}

func NewSessionCodec(secret string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret)}
}

func (c *SessionCodec) Serialize(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	// map keys are emitted in sorted order
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	return encodeSegment(payload) + "." + encodeSegment(c.sign(payload)), nil
}

// Deserialize returns an empty map for a missing, malformed or forged token.
func (c *SessionCodec) Deserialize(token string) map[string]any {
	empty := map[string]any{}
	if token == "" {
		return empty
	}

	payloadPart, signaturePart, ok := strings.Cut(token, ".")
	if !ok {
		return empty
	}

	payload, err := decodeSegment(payloadPart)
	if err != nil {
		return empty
	}
	signature, err := decodeSegment(signaturePart)
	if err != nil {
		return empty
	}

	if !hmac.Equal(signature, c.sign(payload)) {
		return empty
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil || data == nil {
		return empty
	}
	return data
}

// FromRequest decodes the session cookie carried by r.
func (c *SessionCodec) FromRequest(r *http.Request) models.Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return models.Session{}
	}
	return models.SessionFromMap(c.Deserialize(cookie.Value))
}

func (c *SessionCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

var segmentEncoding = base64.RawURLEncoding.Strict()

func encodeSegment(b []byte) string {
	return segmentEncoding.EncodeToString(b)
}

func decodeSegment(s string) ([]byte, error) {
	return segmentEncoding.DecodeString(strings.TrimRight(s, "="))
}

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

func (c *SessionCodec) SetCookie(w http.ResponseWriter, s models.Session, opts CookieOptions) error {
	value, err := c.Serialize(s.Map())
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if opts.MaxAge > 0 {
		cookie.MaxAge = int(opts.MaxAge.Seconds())
		cookie.Expires = time.Now().Add(opts.MaxAge)
	}

	http.SetCookie(w, cookie)
	return nil
}

// ClearCookie overwrites the session cookie with an empty, already expired one.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
