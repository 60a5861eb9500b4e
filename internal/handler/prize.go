package handler

import (
	"net/http"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/internal/service"
)

// PrizeHandler handles prize award and shipment endpoints.
type PrizeHandler struct {
	prizes *service.PrizeService
}

// NewPrizeHandler creates a new PrizeHandler.
func NewPrizeHandler(prizes *service.PrizeService) *PrizeHandler {
	return &PrizeHandler{prizes: prizes}
}

type awardRequest struct {
	TicketNumber int64            `json:"ticket_number"`
	Type         domain.PrizeType `json:"type"`
	Content      string           `json:"content"`
}

// AwardPrize handles POST /admin/games/{id}/prizes.
func (h *PrizeHandler) AwardPrize(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	var req awardRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION_ERROR", "message": "invalid request body"})
		return
	}

	prize, err := h.prizes.AwardPrize(r.Context(), gameID, req.TicketNumber, req.Type, req.Content)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, prize)
}

// ListPrizes handles GET /admin/games/{id}/prizes.
func (h *PrizeHandler) ListPrizes(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	prizes, err := h.prizes.ListPrizes(r.Context(), gameID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, prizes)
}

type shipmentRequest struct {
	Status domain.PrizeStatus `json:"status"`
}

// AdvanceShipment handles PATCH /admin/prizes/{id}/status.
func (h *PrizeHandler) AdvanceShipment(w http.ResponseWriter, r *http.Request) {
	prizeID, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	var req shipmentRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION_ERROR", "message": "invalid request body"})
		return
	}

	prize, err := h.prizes.AdvanceShipment(r.Context(), prizeID, req.Status)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, prize)
}
