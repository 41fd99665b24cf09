package auth

import (
	"net/http"
)

func (env *Env) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r)
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	db := &DB{env.DB}
	user, err := db.GetUserByID(r.Context(), userID)
	if err != nil || user == nil {
		RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	// Return only public user information
	publicUser := struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	JSON(w, http.StatusOK, publicUser)
}
