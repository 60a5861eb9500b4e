//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/attaboy/lottery/internal/auth"
	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
)

// Player is a seeded user with a player-realm token.
type Player struct {
	ID    uuid.UUID
	Token string
}

// AdminToken issues an admin-realm token with the given role.
func (env *TestEnv) AdminToken(role string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, uuid.New(), role)
	if err != nil {
		env.t.Fatalf("AdminToken: %v", err)
	}
	return token
}

// CreatePlayer seeds a user through the admin API with the given initial grant.
func (env *TestEnv) CreatePlayer(grant int64) Player {
	env.t.Helper()
	resp := env.AuthPOST("/admin/users", map[string]int64{"initial_grant": grant}, env.AdminToken(auth.RoleAdmin))
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		env.t.Fatalf("CreatePlayer: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	DecodeJSON(env.t, resp, &result)
	return Player{ID: result.User.ID, Token: result.Token}
}

// CreateGame opens a game through the admin API.
func (env *TestEnv) CreateGame(name string, price int64) domain.Game {
	env.t.Helper()
	resp := env.AuthPOST("/admin/games", map[string]interface{}{
		"name":         name,
		"ticket_price": price,
	}, env.AdminToken(auth.RoleAdmin))
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		env.t.Fatalf("CreateGame: expected 201, got %d", resp.StatusCode)
	}

	var game domain.Game
	DecodeJSON(env.t, resp, &game)
	return game
}

// BuyTicket purchases ticket number for player and returns the raw response.
func (env *TestEnv) BuyTicket(gameID uuid.UUID, number int64, player Player) *http.Response {
	env.t.Helper()
	return env.AuthPOST("/games/"+gameID.String()+"/tickets", map[string]int64{"number": number}, player.Token)
}

// AwardPrize awards a prize against a ticket number and returns the raw response.
func (env *TestEnv) AwardPrize(gameID uuid.UUID, number int64, prizeType domain.PrizeType, content string) *http.Response {
	env.t.Helper()
	return env.AuthPOST("/admin/games/"+gameID.String()+"/prizes", map[string]interface{}{
		"ticket_number": number,
		"type":          prizeType,
		"content":       content,
	}, env.AdminToken(auth.RoleAdmin))
}

// CancelGame cancels a game through the admin API and returns the raw response.
func (env *TestEnv) CancelGame(gameID uuid.UUID) *http.Response {
	env.t.Helper()
	return env.AuthPOST("/admin/games/"+gameID.String()+"/cancel", nil, env.AdminToken(auth.RoleAdmin))
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.send(http.MethodPost, path, body, token)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.send(http.MethodGet, path, nil, token)
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.send(http.MethodPost, path, body, token)
}

// AuthPATCH performs an authenticated PATCH request.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.send(http.MethodPatch, path, body, token)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.send(http.MethodDelete, path, nil, token)
}

func (env *TestEnv) send(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
