package handler

import (
	"net/http"

	"github.com/attaboy/lottery/internal/cancellation"
	"github.com/attaboy/lottery/internal/service"
)

// GameHandler handles game lifecycle, ticket purchase and cancellation endpoints.
type GameHandler struct {
	games  *service.GameService
	cancel cancellation.Canceller
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games *service.GameService, cancel cancellation.Canceller) *GameHandler {
	return &GameHandler{games: games, cancel: cancel}
}

type createGameRequest struct {
	Name        string `json:"name"`
	TicketPrice int64  `json:"ticket_price"`
}

// CreateGame handles POST /admin/games.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION_ERROR", "message": "invalid request body"})
		return
	}

	game, err := h.games.CreateGame(r.Context(), req.Name, req.TicketPrice)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, game)
}

// GetGame handles GET /games/{id} and GET /admin/games/{id}.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	game, err := h.games.GetGame(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, game)
}

// CloseGame handles POST /admin/games/{id}/close.
func (h *GameHandler) CloseGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	game, err := h.games.CloseGame(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, game)
}

type purchaseRequest struct {
	Number int64 `json:"number"`
}

// PurchaseTicket handles POST /games/{id}/tickets for the authenticated player.
func (h *GameHandler) PurchaseTicket(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	gameID, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	var req purchaseRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION_ERROR", "message": "invalid request body"})
		return
	}

	ticket, err := h.games.PurchaseTicket(r.Context(), gameID, req.Number, userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, ticket)
}

// ListTickets handles GET /admin/games/{id}/tickets.
func (h *GameHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	tickets, err := h.games.ListTickets(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, tickets)
}

// CancelGame handles POST /admin/games/{id}/cancel. A game that is already
// cancelled answers 200 with already_cancelled set.
func (h *GameHandler) CancelGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	res, err := h.cancel.CancelGame(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, res)
}
