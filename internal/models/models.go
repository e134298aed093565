package models

import "time"

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type ShortLink struct {
	ID            int64     `json:"id" db:"id"`
	Code          string    `json:"code" db:"code"`
	TargetURL     string    `json:"target_url" db:"target_url"`
	Hits          int64     `json:"hits" db:"hits"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	OwnerID       *int64    `json:"owner_id" db:"owner_id"`
	OwnerUsername *string   `json:"owner_username,omitempty" db:"owner_username"`
}

type SubdomainRedirect struct {
	ID            int64     `json:"id" db:"id"`
	Host          string    `json:"host" db:"host"`
	TargetURL     string    `json:"target_url" db:"target_url"`
	Code          int       `json:"code" db:"code"`
	Hits          int64     `json:"hits" db:"hits"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	OwnerID       *int64    `json:"owner_id" db:"owner_id"`
	OwnerUsername *string   `json:"owner_username,omitempty" db:"owner_username"`
}

// OwnedBy reports whether the record belongs to the given user id.
func (l *ShortLink) OwnedBy(userID int64) bool {
	return l.OwnerID != nil && *l.OwnerID == userID
}

func (s *SubdomainRedirect) OwnedBy(userID int64) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}

// Session is the typed view of the signed cookie payload.
type Session struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	IsAdmin         bool   `json:"is_admin"`
	SID             string `json:"sid,omitempty"`
}

// Map converts the session into the payload map handed to the codec.
func (s Session) Map() map[string]any {
	m := map[string]any{
		"is_authenticated": s.IsAuthenticated,
		"user_id":          s.UserID,
		"username":         s.Username,
		"is_admin":         s.IsAdmin,
	}
	if s.SID != "" {
		m["sid"] = s.SID
	}
	return m
}

// SessionFromMap reads a decoded payload. Unknown or mistyped fields are ignored.
func SessionFromMap(m map[string]any) Session {
	var s Session
	if v, ok := m["is_authenticated"].(bool); ok {
		s.IsAuthenticated = v
	}
	switch v := m["user_id"].(type) {
	case float64:
		s.UserID = int64(v)
	case int64:
		s.UserID = v
	case int:
		s.UserID = int64(v)
	}
	if v, ok := m["username"].(string); ok {
		s.Username = v
	}
	if v, ok := m["is_admin"].(bool); ok {
		s.IsAdmin = v
	}
	if v, ok := m["sid"].(string); ok {
		s.SID = v
	}
	return s
}

type LinkInput struct {
	Code      string `json:"code" validate:"omitempty,max=64"`
	TargetURL string `json:"target_url" validate:"required,url,max=2048"`
}

type SubdomainInput struct {
	Host      string `json:"host" validate:"required,max=255"`
	TargetURL string `json:"target_url" validate:"required,url,max=2048"`
	Code      int    `json:"code" validate:"omitempty,oneof=301 302"`
}

type UserInput struct {
	Username        string `json:"username" validate:"required,max=64"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	IsAdmin         *bool  `json:"is_admin"`
}

type PasswordChange struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}
