package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"

	"github.com/scanbridge/card-services/internal/cardsvc/broker"
	"github.com/scanbridge/card-services/internal/cardsvc/models"
	"github.com/scanbridge/card-services/internal/cardsvc/service"
)

type Handler struct {
	cardService *service.CardService
	broker      *broker.Broker
}

func NewHandler(cardService *service.CardService, b *broker.Broker) *Handler {
	return &Handler{cardService: cardService, broker: b}
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type createCardRequest struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	ImageData string `json:"imageData"`
	OwnerID   string `json:"ownerId"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	json.NewEncoder(w).Encode(rsp)
}

// writeError maps service errors to status codes and the user-facing
// messages the clients already display. Anything unmapped becomes a 500
// so store internals never leak raw.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, Response{Error: "Missing required fields"})
	case errors.Is(err, models.ErrPayloadTooLarge):
		h.writeJSON(w, http.StatusRequestEntityTooLarge, Response{Error: "Imagen demasiado grande (máximo 2MB)"})
	case errors.Is(err, models.ErrQuotaExceeded):
		h.writeJSON(w, http.StatusForbidden, Response{Error: "Límite de 10 tarjetas alcanzado"})
	case errors.Is(err, models.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, Response{Error: "Tarjeta no encontrada"})
	case errors.Is(err, models.ErrUnauthorized):
		h.writeJSON(w, http.StatusUnauthorized, Response{Error: "No autorizado"})
	case errors.Is(err, models.ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, Response{Error: "No tienes permiso para eliminar esta tarjeta"})
	default:
		log.Errorf("Error handling request %s", err)
		h.writeJSON(w, http.StatusInternalServerError, Response{Error: "Internal Server Error"})
	}
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, Response{Error: "Missing required fields"})
		return
	}

	card, err := h.cardService.Create(r.Context(), req.Name, req.Company, req.ImageData, req.OwnerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.broker.PublishCardCreated(card)
	h.writeJSON(w, http.StatusCreated, Response{Success: true, Data: card})
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	card, err := h.cardService.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: card})
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		h.writeJSON(w, http.StatusBadRequest, Response{Error: "ownerId is required"})
		return
	}

	cards, err := h.cardService.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: cards})
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ownerID := r.URL.Query().Get("ownerId")

	removed, err := h.cardService.Delete(r.Context(), id, ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// a no-op delete of an absent card must not announce a phantom id
	if removed {
		h.broker.PublishCardDeleted(id, ownerID)
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    "card service is running at port " + os.Getenv("SERVICE_PORT"),
	})
}
