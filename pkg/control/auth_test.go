package control

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/duskward/lodestone/pkg/store"
	"github.com/duskward/lodestone/pkg/world"
)

func newTestAuth(t *testing.T) (*world.World, *AuthService, world.EntityID) {
	t.Helper()
	w := world.New()
	room := w.CreateRoom("The Plaza")
	w.SpawnRoom = room
	hash, err := store.HashPassword("letmein")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	id := w.CreatePlayer("god", hash, room)
	player, _ := w.Player(id)
	player.Flags |= world.PlayerImmortal
	return w, NewAuthService(w, "test-secret", 3600), id
}

func TestLoginIssuesScopedToken(t *testing.T) {
	_, auth, _ := newTestAuth(t)

	token, err := auth.Login("god", "letmein")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !claims.hasScope("scripts") {
		t.Fatalf("expected immortal login to carry the scripts scope")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	_, auth, _ := newTestAuth(t)
	if _, err := auth.Login("god", "wrong"); err == nil {
		t.Fatalf("expected an error for a wrong password")
	}
}

func TestNonImmortalTokenLacksScriptsScope(t *testing.T) {
	w, auth, _ := newTestAuth(t)
	hash, _ := store.HashPassword("pw")
	w.CreatePlayer("mortal", hash, w.SpawnRoom)

	token, err := auth.Login("mortal", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.hasScope("scripts") {
		t.Fatalf("expected a non-immortal token to lack the scripts scope")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	_, auth, _ := newTestAuth(t)
	token, _ := auth.Login("god", "letmein")

	if err := auth.Logout(token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := auth.ValidateToken(token); err == nil {
		t.Fatalf("expected a revoked token to fail validation")
	}
}

func TestRequireRejectsMissingToken(t *testing.T) {
	_, auth, _ := newTestAuth(t)
	handler := auth.require("scripts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scripts/read/all", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no bearer token, got %d", rec.Code)
	}
}

func TestRequireRejectsInsufficientScope(t *testing.T) {
	w, auth, _ := newTestAuth(t)
	hash, _ := store.HashPassword("pw")
	w.CreatePlayer("mortal", hash, w.SpawnRoom)
	token, _ := auth.Login("mortal", "pw")

	handler := auth.require("scripts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scripts/read/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without the scripts scope, got %d", rec.Code)
	}
}

func TestRequireAllowsSufficientScope(t *testing.T) {
	_, auth, _ := newTestAuth(t)
	token, _ := auth.Login("god", "letmein")

	handler := auth.require("scripts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/scripts/read/all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with the scripts scope, got %d", rec.Code)
	}
}

func TestHandleLoginHTTP(t *testing.T) {
	_, auth, _ := newTestAuth(t)
	mux := http.NewServeMux()
	auth.RegisterAuthRoutes(mux)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"username":"god","password":"letmein"}`))
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "token") {
		t.Fatalf("expected a token field in the response, got %s", rec.Body.String())
	}
}
