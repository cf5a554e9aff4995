package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"almacen/backend/internal/domain"
)

type AuthManager struct {
	mu        sync.RWMutex
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	users     map[string]credential
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type credential struct {
	password string
	role     string
	active   bool
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	manager := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
	}
	// Runs at startup, before any request context exists.
	manager.refreshUsers(context.Background())
	return manager
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	// Refresh on every login so accounts created since startup can sign in.
	a.refreshUsers(context.Background())

	username := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	cred, ok := a.users[username]
	a.mu.RUnlock()
	if !ok {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	if !verifyPassword(cred.password, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !cred.active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "almacen",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// refreshUsers loads accounts from the user store into the in-memory
// credential cache, upgrading any legacy plain-text passwords to bcrypt
// hashes in the store as it goes.
func (a *AuthManager) refreshUsers(ctx context.Context) {
	if a.userStore == nil {
		return
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, user := range users {
		username := strings.ToLower(strings.TrimSpace(user.Username))
		if username == "" {
			continue
		}
		password := user.Password
		if !isPasswordHash(password) {
			hashed, err := hashPassword(password)
			if err == nil {
				password = hashed
				_ = a.userStore.UpdateUserPassword(ctx, username, hashed)
			}
		}
		a.users[username] = credential{
			password: password,
			role:     user.Role,
			active:   user.Active,
		}
	}
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
