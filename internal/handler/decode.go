package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/service"
)

var errInvalidBody = &service.Error{Kind: service.ErrValidation, Message: "invalid request body"}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decode fills dst from a JSON body, or calls fromForm with the parsed form
// for urlencoded and multipart submissions.
func decode[T any](r *http.Request, fromForm func(form formValues) (T, error)) (T, error) {
	var dst T
	if isJSON(r) {
		if err := render.DecodeJSON(r.Body, &dst); err != nil {
			return dst, errInvalidBody
		}
		return dst, nil
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return dst, errInvalidBody
	}
	return fromForm(formValues{r: r})
}

type formValues struct {
	r *http.Request
}

func (f formValues) str(key string) string {
	return f.r.PostFormValue(key)
}

// last returns the final value submitted for key, so a hidden "0" followed
// by a checked checkbox reads as checked.
func (f formValues) last(key string) (string, bool) {
	values, ok := f.r.PostForm[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

func linkFromForm(f formValues) (models.LinkInput, error) {
	return models.LinkInput{
		Code:      f.str("code"),
		TargetURL: f.str("target_url"),
	}, nil
}

func subdomainFromForm(f formValues) (models.SubdomainInput, error) {
	in := models.SubdomainInput{
		Host:      f.str("host"),
		TargetURL: f.str("target_url"),
	}
	if raw := strings.TrimSpace(f.str("code")); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			return in, &service.Error{Kind: service.ErrValidation, Message: "code must be 301 or 302"}
		}
		in.Code = code
	}
	return in, nil
}

func userFromForm(f formValues) (models.UserInput, error) {
	in := models.UserInput{
		Username:        f.str("username"),
		Email:           f.str("email"),
		Password:        f.str("password"),
		PasswordConfirm: f.str("password_confirm"),
	}
	if raw, ok := f.last("is_admin"); ok {
		isAdmin := parseBool(raw)
		in.IsAdmin = &isAdmin
	}
	return in, nil
}

func passwordFromForm(f formValues) (models.PasswordChange, error) {
	return models.PasswordChange{
		CurrentPassword:    f.str("current_password"),
		NewPassword:        f.str("new_password"),
		NewPasswordConfirm: f.str("new_password_confirm"),
	}, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
