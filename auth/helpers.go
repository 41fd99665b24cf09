package auth

import (
	"errors"
	"net/http"
)

// --- Context Keys ---

type contextKey string

const (
	userIDKey        contextKey = "userID"
	signupRequestKey contextKey = "signupRequest"
)

func GetUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := r.Context().Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", errors.New("unauthorized")
	}
	return userID, nil
}
