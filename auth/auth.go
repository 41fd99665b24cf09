package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"banking-ledger-backend/ledger"
)

// --- Models ---

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.StandardClaims
}

// --- Database ---

type DB struct {
	*sql.DB
}

// EnsureSchema creates the users table when it does not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("could not ensure users schema: %w", err)
	}
	return nil
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx, so the user insert can run
// standalone or enlisted in a surrounding transaction.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func createUser(ctx context.Context, q rowQuerier, user *User, passwordHash string) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `INSERT INTO users (id, email, password_hash, first_name, last_name)
			  VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err := q.QueryRowContext(ctx, query, user.ID, user.Email, passwordHash, user.FirstName, user.LastName).
		Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}
	user.PasswordHash = passwordHash
	return nil
}

func (db *DB) CreateUser(ctx context.Context, user *User, passwordHash string) error {
	return createUser(ctx, db.DB, user, passwordHash)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	query := `SELECT id, email, password_hash, first_name, last_name, created_at FROM users WHERE email = $1`
	err := db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("could not get user by email: %w", err)
	}
	return user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*User, error) {
	user := &User{}
	query := `SELECT id, email, password_hash, first_name, last_name, created_at FROM users WHERE id = $1`
	err := db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}
	return user, nil
}

// FindOwner makes the user table act as the engine's recipient directory.
// Values containing "@" are treated as emails, anything else as a user id.
func (db *DB) FindOwner(ctx context.Context, idOrEmail string) (*ledger.Owner, error) {
	var user *User
	var err error
	if strings.Contains(idOrEmail, "@") {
		user, err = db.GetUserByEmail(ctx, idOrEmail)
	} else {
		user, err = db.GetUserByID(ctx, idOrEmail)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ledger.ErrRecipientNotFound
	}
	return &ledger.Owner{ID: user.ID, DisplayName: user.FirstName + " " + user.LastName}, nil
}

// --- JWT ---

func GenerateJWT(key []byte, userID string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func ValidateJWT(key []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// --- Handlers ---

type Env struct {
	DB        *sql.DB
	JWTKey    []byte
	Logger    *zap.Logger
	Processor *ledger.Processor

	InitialUSDCents int64
	InitialEURCents int64
}

// SignupHandler registers a user and provisions their USD and EUR accounts
// with the configured starting balances. The request has already passed
// ValidateSignupRequest.
func (env *Env) SignupHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(signupRequestKey).(RegisterRequest)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	db := &DB{env.DB}
	existing, err := db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		env.Logger.Error("signup lookup failed", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	if existing != nil {
		RespondWithError(w, http.StatusConflict, "User with this email already exists")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	// The user row and the seeded accounts commit in one unit of work, so a
	// failed registration leaves no user behind.
	user := &User{ID: uuid.NewString(), Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	_, err = env.Processor.ProvisionOwner(r.Context(), user.ID, env.InitialUSDCents, env.InitialEURCents,
		func(ctx context.Context, tx ledger.Tx) error {
			sqlTx, ok := tx.(interface{ SQL() *sql.Tx })
			if !ok {
				return fmt.Errorf("store cannot enlist the user insert")
			}
			return createUser(ctx, sqlTx.SQL(), user, string(passwordHash))
		})
	if err != nil {
		env.Logger.Error("could not register user", zap.Error(err), zap.String("email", req.Email))
		RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	tokenString, err := GenerateJWT(env.JWTKey, user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	env.Logger.Info("user registered", zap.String("userID", user.ID), zap.String("email", user.Email))
	JSON(w, http.StatusCreated, AuthResponse{Token: tokenString, User: *user})
}

func (env *Env) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	db := &DB{env.DB}
	user, err := db.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user == nil {
		RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	tokenString, err := GenerateJWT(env.JWTKey, user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	env.Logger.Info("user logged in", zap.String("userID", user.ID))
	JSON(w, http.StatusOK, AuthResponse{Token: tokenString, User: *user})
}

// --- Middleware ---

func AuthenticationMiddleware(key []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				RespondWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
				return
			}

			claims, err := ValidateJWT(key, tokenString)
			if err != nil {
				RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Logger logs every request with method, path, status, and duration.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
