package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	lh "github.com/panyam/loginhub"
)

// signupForm carries the parsed fields of a registration request.
type signupForm struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	BirthDate   time.Time
	Password    string
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	form, authErr := parseSignupForm(r)
	if authErr != nil {
		writeAuthError(w, http.StatusBadRequest, authErr)
		return
	}
	if authErr := validateSignupForm(form); authErr != nil {
		writeAuthError(w, http.StatusBadRequest, authErr)
		return
	}

	user, err := s.Backend.CreateUser(r.Context(), form.Email, form.Password)
	if err != nil {
		log.Println("error creating user: ", err)
		errMsg := err.Error()
		if strings.Contains(errMsg, "already registered") || strings.Contains(errMsg, "already exists") {
			writeAuthError(w, http.StatusConflict, NewAuthError(ErrCodeEmailExists, errMsg, "email"))
		} else {
			writeAuthError(w, http.StatusBadRequest, NewAuthError("create_failed", fmt.Sprintf("Failed to create user: %s", errMsg), ""))
		}
		return
	}

	displayName := form.FirstName + " " + form.LastName
	if err := s.Backend.UpdateDisplayName(r.Context(), user.ID, displayName); err != nil {
		log.Println("error setting display name: ", err)
	}
	doc := &lh.UserDocument{
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		Email:       form.Email,
		PhoneNumber: form.PhoneNumber,
		BirthDate:   form.BirthDate,
	}
	if err := s.Backend.PutUserDocument(r.Context(), user.ID, doc); err != nil {
		log.Println("error saving user document: ", err)
	}

	// Account created but no session started - the user still signs in
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Account created. Please sign in.",
		"user_id": user.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password, err := parseLoginForm(r)
	if err != nil {
		writeAuthError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, err.Error(), "email"))
		return
	}

	user, err := s.Backend.SignIn(r.Context(), email, password)
	if err != nil || user == nil {
		if err != nil {
			log.Println("error validating user: ", err)
		}
		writeAuthError(w, http.StatusUnauthorized, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"))
		return
	}

	tokenString := s.setLoggedInUser(user.ID, w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   tokenString,
		"user":    identityBody(user),
	})
}

// handleForgotPassword kicks off a password reset.  The response never
// reveals whether the email is registered.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := formValues(r, "email")["email"]
	if email == "" {
		writeAuthError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "Email required", "email"))
		return
	}
	if err := s.Backend.ResetPassword(r.Context(), email); err != nil {
		log.Printf("Error creating reset token: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "If that email exists, a reset link has been sent",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	vals := formValues(r, "token", "password")
	token, password := vals["token"], vals["password"]
	if token == "" || password == "" {
		writeAuthError(w, http.StatusBadRequest, NewAuthError(ErrCodeMissingField, "Token and password required", ""))
		return
	}
	if !lh.IsValidPassword(password) {
		writeAuthError(w, http.StatusBadRequest, NewAuthError(ErrCodeWeakPassword, "Password must be at least 8 characters with no spaces", "password"))
		return
	}

	if err := s.Backend.CompletePasswordReset(r.Context(), token, password); err != nil {
		writeAuthError(w, http.StatusBadRequest, NewAuthError(ErrCodeInvalidToken, "Invalid or expired token", "token"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successfully",
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	userID := s.Middleware.GetLoggedInUserId(r)
	if userID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	user, err := s.Backend.GetUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          identityBody(user),
	})
}

// handleProviderStart kicks off a federated login through the hub.  The
// flow completes out of band; observers see it on the hub's session
// stream.
func (s *Server) handleProviderStart(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		writeAuthError(w, http.StatusNotFound, NewAuthError("not_configured", "Federated login not configured", ""))
		return
	}
	name := mux.Vars(r)["provider"]
	kind := lh.ProviderKind(name)
	switch kind {
	case lh.ProviderFacebook, lh.ProviderGoogle, lh.ProviderApple:
		s.Hub.Login(kind)
		writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "provider": name})
	default:
		writeAuthError(w, http.StatusNotFound, NewAuthError("unknown_provider", fmt.Sprintf("Unknown provider: %s", name), ""))
	}
}

func identityBody(user *lh.BackendUser) map[string]any {
	return map[string]any{
		"id":           user.ID,
		"display_name": user.DisplayName,
		"email":        user.Email,
		"avatar_url":   user.AvatarURL,
		"linked":       user.Linked,
	}
}

func parseLoginForm(r *http.Request) (email, password string, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err = r.ParseForm(); err != nil {
			return "", "", fmt.Errorf("error parsing form")
		}
		email = r.FormValue("email")
		password = r.FormValue("password")
	} else {
		var data map[string]any
		if err = json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", fmt.Errorf("invalid post body")
		}
		if e, ok := data["email"].(string); ok {
			email = e
		}
		if p, ok := data["password"].(string); ok {
			password = p
		}
	}

	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password required")
	}
	return email, password, nil
}

func parseSignupForm(r *http.Request) (*signupForm, *AuthError) {
	contentType := r.Header.Get("Content-Type")
	fields := map[string]string{}

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, NewAuthError("parse_error", "Error parsing form", "")
		}
		for _, name := range []string{"firstName", "lastName", "email", "phoneNumber", "birthDate", "password"} {
			fields[name] = r.FormValue(name)
		}
	} else {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, NewAuthError("parse_error", "Invalid post body", "")
		}
		for _, name := range []string{"firstName", "lastName", "email", "phoneNumber", "birthDate", "password"} {
			if v, ok := data[name].(string); ok {
				fields[name] = v
			}
		}
	}

	form := &signupForm{
		FirstName:   fields["firstName"],
		LastName:    fields["lastName"],
		Email:       fields["email"],
		PhoneNumber: fields["phoneNumber"],
		Password:    fields["password"],
	}
	if bd := fields["birthDate"]; bd != "" {
		parsed, err := time.Parse("2006-01-02", bd)
		if err != nil {
			return nil, NewAuthError("parse_error", "birthDate must be YYYY-MM-DD", "birthDate")
		}
		form.BirthDate = parsed
	}
	return form, nil
}

func validateSignupForm(form *signupForm) *AuthError {
	if !lh.IsValidName(form.FirstName) {
		return NewAuthError(ErrCodeInvalidName, "Invalid first name", "firstName")
	}
	if !lh.IsValidName(form.LastName) {
		return NewAuthError(ErrCodeInvalidName, "Invalid last name", "lastName")
	}
	if !lh.IsValidEmail(form.Email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if form.PhoneNumber != "" && !lh.IsValidPhoneNumber(form.PhoneNumber) {
		return NewAuthError(ErrCodeInvalidPhone, "Invalid phone number", "phoneNumber")
	}
	if !lh.IsValidPassword(form.Password) {
		return NewAuthError(ErrCodeWeakPassword, "Password must be at least 8 characters with no spaces", "password")
	}
	return nil
}

// formValues reads the named fields from either a urlencoded form or a
// JSON body in one pass.
func formValues(r *http.Request, names ...string) map[string]string {
	out := map[string]string{}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			return out
		}
		for _, name := range names {
			if v, ok := data[name].(string); ok {
				out[name] = v
			}
		}
		return out
	}
	if err := r.ParseForm(); err != nil {
		return out
	}
	for _, name := range names {
		out[name] = r.FormValue(name)
	}
	return out
}
