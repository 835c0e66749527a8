package web

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	lh "github.com/panyam/loginhub"
)

// Server exposes a login hub over HTTP for form and JSON clients.
// Authentication is cookie based: a successful login mints an HS256 JWT
// which is set on the response and stored in the server side session.
type Server struct {
	router  *mux.Router
	Session *scs.SessionManager

	Middleware Middleware

	// Optional name that can be used as a prefix for all required vars
	AppName string

	// Name of the session variable where the auth token is stored
	AuthTokenSessionVar string

	// Must be passed in
	Backend lh.Backend

	// Optional: lets GET /auth/{provider}/start kick off a federated
	// provider flow through the hub
	Hub *lh.SessionCoordinator

	// All the domains where the auth token cookies will be set on a
	// login success or logout
	CookieDomains []string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	// How long is a session cookie valid for.  Defaults to 1 day
	SessionTimeoutInSeconds int
}

func NewServer(appName string, backend lh.Backend) *Server {
	out := (&Server{AppName: appName, Backend: backend}).EnsureDefaults()
	return out
}

func (s *Server) EnsureDefaults() *Server {
	// ensure some defaults
	if s.AppName == "" {
		s.AppName = "LoginHub"
	}
	if s.SessionTimeoutInSeconds <= 0 {
		s.SessionTimeoutInSeconds = 86400
	}
	if s.JwtIssuer == "" {
		s.JwtIssuer = fmt.Sprintf("%s-Issuer", s.AppName)
	}
	if s.AuthTokenSessionVar == "" {
		s.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", s.AppName)
	}
	if s.JWTSecretKey == "" {
		s.JWTSecretKey = strings.TrimSpace(os.Getenv("LOGINHUB_JWT_SECRET_KEY"))
		if s.JWTSecretKey == "" {
			s.JWTSecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if s.Session == nil {
		s.Session = scs.New()
		s.Session.Lifetime = time.Second * time.Duration(s.SessionTimeoutInSeconds)
	}
	s.Middleware.EnsureReasonableDefaults()
	if s.Middleware.AuthTokenCookieName == "" {
		s.Middleware.AuthTokenCookieName = s.AuthTokenSessionVar
	}
	if s.Middleware.SessionGetter == nil {
		s.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return s.Session.Get(r.Context(), param)
		}
	}
	if s.Middleware.VerifyToken == nil {
		s.Middleware.VerifyToken = s.verifyJWT
	}
	return s
}

// Handler returns the full HTTP handler, sessions included.
func (s *Server) Handler() http.Handler {
	return s.Session.LoadAndSave(s.setupRoutes().router)
}

func (s *Server) setupRoutes() *Server {
	if s.router == nil {
		s.EnsureDefaults()
		r := mux.NewRouter()
		r.HandleFunc("/auth/signup", s.handleSignup).Methods("POST")
		r.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
		r.HandleFunc("/auth/logout", s.handleLogout).Methods("GET", "POST")
		r.HandleFunc("/auth/forgot-password", s.handleForgotPassword).Methods("POST")
		r.HandleFunc("/auth/reset-password", s.handleResetPassword).Methods("POST")
		r.HandleFunc("/auth/session", s.handleSession).Methods("GET")
		r.HandleFunc("/auth/{provider}/start", s.handleProviderStart).Methods("GET")
		s.router = r
	}
	return s
}

func (s *Server) verifyJWT(tokenString string) (loggedInUserId string, t any, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.JWTSecretKey), nil
	})
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", nil, fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if sub == "" {
		return "", nil, fmt.Errorf("subject not found")
	} else if err != nil {
		return "", nil, err
	}
	return sub, token, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Backend.SignOut(r.Context()); err != nil {
		log.Println("error signing out: ", err)
	}
	s.setLoggedInUser("", w, r)
	toUrl := r.URL.Query()["to"]
	if len(toUrl) == 0 || toUrl[0] == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
	} else {
		http.Redirect(w, r, toUrl[0], http.StatusFound)
	}
}

// Generic helper method to set the auth token and logged in user ID on a
// bunch of cookie domains we care about.  Passing an empty userID
// "unsets/logs out" the logged in user.
func (s *Server) setLoggedInUser(userID string, w http.ResponseWriter, r *http.Request) string {
	s.EnsureDefaults()
	domains := s.CookieDomains
	if slices.Index(s.CookieDomains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	for _, cookieDomain := range domains {
		if userID != "" {
			s.Session.Put(r.Context(), s.Middleware.UserParamName, userID)
			http.SetCookie(w, &http.Cookie{
				Name:    "loggedInUserId",
				Value:   userID,
				Domain:  cookieDomain,
				Path:    "/",
				Expires: time.Now().Add(time.Second * time.Duration(s.SessionTimeoutInSeconds)), MaxAge: s.SessionTimeoutInSeconds,
			})

			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": userID,
				"iss": s.JwtIssuer,
				"exp": time.Now().Add(time.Second * time.Duration(s.SessionTimeoutInSeconds)).Unix(),
				"iat": time.Now().Unix(),
			})
			tokenString, err := token.SignedString([]byte(s.JWTSecretKey))
			if err != nil {
				slog.Info("error signing token", "err", err)
			}

			s.Session.Put(r.Context(), s.AuthTokenSessionVar, tokenString)
			http.SetCookie(w, &http.Cookie{
				Name:    s.AuthTokenSessionVar,
				Value:   tokenString,
				Domain:  cookieDomain,
				Path:    "/",
				Expires: time.Now().Add(time.Second * time.Duration(s.SessionTimeoutInSeconds)), MaxAge: s.SessionTimeoutInSeconds,
			})
			return tokenString
		}

		// clear the session and cookie values
		if err := s.Session.Clear(r.Context()); err != nil {
			slog.Warn("error clearing session ", "err", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:    "loggedInUserId",
			Domain:  cookieDomain,
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
		http.SetCookie(w, &http.Cookie{
			Name:    s.AuthTokenSessionVar,
			Domain:  cookieDomain,
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
	}
	return ""
}
