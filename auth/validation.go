package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// --- Validation Middleware ---

func ValidateSignupRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := validateSignupData(req); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		// If validation is successful, store the request in the context and call the next handler
		ctx := context.WithValue(r.Context(), signupRequestKey, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateSignupData(req RegisterRequest) error {
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}
	if err := validateName(req.FirstName, "first name"); err != nil {
		return err
	}
	if err := validateName(req.LastName, "last name"); err != nil {
		return err
	}
	return nil
}

func validateEmail(email string) error {
	// A simple regex for email validation
	re := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	if !re.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

func validateName(name, field string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
