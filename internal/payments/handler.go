package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-ops/atelier/internal/lifecycle"
	"github.com/atelier-ops/atelier/internal/platform/httpx"
	"github.com/atelier-ops/atelier/internal/shared"
)

// Handler manages payment ledger HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers payment routes. The ledger spans two URL
// families, /orders/{id}/... for order-scoped views and /payments/{id}
// for entry actions, so paths are registered absolute.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/{id}/payments", h.record)
	r.Get("/orders/{id}/payments", h.summary)
	r.Get("/orders/{id}/receipt", h.receipt)

	r.Get("/payments/{id}", h.show)
	r.Post("/payments/{id}/refund", h.refund)
	r.Post("/payments/{id}/fail", h.markFailed)
	r.Post("/payments/{id}/complete", h.markCompleted)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "order id")
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	payment, err := h.service.Record(r.Context(), orderID, req)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.Int64("order_id", orderID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "order id")
	if !ok {
		return
	}
	sum, err := h.service.Summary(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "order id")
	if !ok {
		return
	}
	text, err := h.service.Receipt(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "payment id")
	if !ok {
		return
	}
	payment, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "payment id")
	if !ok {
		return
	}
	var req RecordRefundRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	payment, err := h.service.Refund(r.Context(), id, req)
	if err != nil {
		h.logger.Error("refund payment", slog.Any("error", err), slog.Int64("payment_id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) markFailed(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, lifecycle.EntryFailed)
}

func (h *Handler) markCompleted(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, lifecycle.EntryCompleted)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status lifecycle.EntryStatus) {
	id, ok := h.pathID(w, r, "payment id")
	if !ok {
		return
	}
	payment, err := h.service.SetStatus(r.Context(), id, status)
	if err != nil {
		h.logger.Error("set payment status", slog.Any("error", err), slog.Int64("payment_id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", what+" must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrNotRefundable):
		httpx.Problem(w, http.StatusConflict, "Not Refundable", err.Error())
	case errors.Is(err, ErrRefundExceedsEntry):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Refund Too Large", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
