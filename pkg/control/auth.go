package control

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/duskward/lodestone/pkg/store"
	"github.com/duskward/lodestone/pkg/world"
)

// Claims holds the JWT claims for a control-plane session: unlike a
// player's in-world login, a control-plane token carries an explicit list
// of scopes an endpoint can require independently of immortal status.
type Claims struct {
	PlayerID   world.EntityID `json:"player_id"`
	PlayerName string         `json:"player_name"`
	Scopes     []string       `json:"scopes"`
	jwt.RegisteredClaims
}

func (c *Claims) hasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AuthService issues and validates control-plane bearer tokens against the
// world's player table. Only immortals are granted the "scripts" scope;
// every other authenticated player gets an empty scope list.
type AuthService struct {
	w      *world.World
	jwtKey []byte
	expiry time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> original expiry, swept lazily
}

// NewAuthService creates an auth service. If jwtSecret is empty, a random
// 32-byte key is generated for the lifetime of this process.
func NewAuthService(w *world.World, jwtSecret string, expirySeconds int) *AuthService {
	var key []byte
	if jwtSecret != "" {
		key = []byte(jwtSecret)
	} else {
		key = make([]byte, 32)
		rand.Read(key)
	}
	expiry := 24 * time.Hour
	if expirySeconds > 0 {
		expiry = time.Duration(expirySeconds) * time.Second
	}
	return &AuthService{w: w, jwtKey: key, expiry: expiry, revoked: make(map[string]time.Time)}
}

// GenerateJWTSecret generates a random hex-encoded secret suitable for a
// jwt_secret config value.
func GenerateJWTSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func (a *AuthService) scopesFor(player *world.Player) []string {
	if player.Flags&world.PlayerImmortal != 0 {
		return []string{"scripts"}
	}
	return nil
}

// Login authenticates a player by username/password and returns a signed
// token.
func (a *AuthService) Login(username, password string) (string, error) {
	id, ok := a.w.LookupPlayer(username)
	if !ok {
		return "", fmt.Errorf("invalid credentials")
	}
	player, ok := a.w.Player(id)
	if !ok || !store.VerifyPassword(password, player.PasswordHash) {
		return "", fmt.Errorf("invalid credentials")
	}
	return a.issue(id, player)
}

func (a *AuthService) issue(id world.EntityID, player *world.Player) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID:   id,
		PlayerName: player.Username,
		Scopes:     a.scopesFor(player),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("#%d", id),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			Issuer:    "lodestone",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtKey)
}

// ValidateToken parses and validates a JWT, rejecting anything revoked by
// Logout.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	a.mu.Lock()
	_, revoked := a.revoked[claims.ID]
	a.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

// RefreshToken creates a new token with a fresh expiry for an existing
// valid, unrevoked token.
func (a *AuthService) RefreshToken(tokenStr string) (string, error) {
	claims, err := a.ValidateToken(tokenStr)
	if err != nil {
		return "", err
	}
	player, ok := a.w.Player(claims.PlayerID)
	if !ok {
		return "", fmt.Errorf("player no longer exists")
	}
	return a.issue(claims.PlayerID, player)
}

// Logout revokes a token by jti until its original expiry passes.
func (a *AuthService) Logout(tokenStr string) error {
	claims, err := a.ValidateToken(tokenStr)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.revoked[claims.ID] = claims.ExpiresAt.Time
	a.mu.Unlock()
	return nil
}

func (a *AuthService) sweepRevoked() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	for jti, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, jti)
		}
	}
}

type contextKey string

const claimsKey contextKey = "control.claims"

// ClaimsFromContext extracts Claims injected by require/authMiddleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	if v := ctx.Value(claimsKey); v != nil {
		return v.(*Claims)
	}
	return nil
}

// require wraps next so a request must carry a valid bearer token holding
// scope; used by scripts.go to gate the CRUD endpoints.
func (a *AuthService) require(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.authenticate(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if !claims.hasScope(scope) {
			writeJSONError(w, http.StatusUnauthorized, "insufficient scope")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthService) authenticate(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("missing bearer token")
	}
	return a.ValidateToken(parts[1])
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

// RegisterAuthRoutes mounts /auth/login, /auth/refresh, and /auth/logout.
func (a *AuthService) RegisterAuthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", a.handleLogin)
	mux.HandleFunc("/auth/refresh", a.handleRefresh)
	mux.HandleFunc("/auth/logout", a.handleLogout)
}

func (a *AuthService) handleLogin(w http.ResponseWriter, r *http.Request) {
	a.sweepRevoked()
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	token, err := a.Login(req.Username, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (a *AuthService) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	token, err := a.RefreshToken(req.Token)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (a *AuthService) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := a.Logout(req.Token); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	w.WriteHeader(http.StatusOK)
}
