package orders

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

// Handler manages order HTTP endpoints.
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

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromQuery(r.URL.Query().Get("page"))
	perPage := 50

	req := ListOrdersRequest{
		Search: r.URL.Query().Get("search"),
		Limit:  perPage,
		Offset: shared.PageOffset(page, perPage),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := lifecycle.OrderStatus(v)
		if !status.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Status", "unknown order status "+v)
			return
		}
		req.Status = &status
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		clientID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "client_id must be numeric")
			return
		}
		req.ClientID = &clientID
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create order", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	order, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update order", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) dueInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	info, err := h.service.DueInfo(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	order, err := h.service.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.logger.Error("cancel order", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.logger.Error("restore order", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) addGarment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req CreateGarmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	order, err := h.service.AddGarment(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add garment", slog.Any("error", err), slog.Int64("order_id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) updateGarment(w http.ResponseWriter, r *http.Request) {
	orderID, garmentID, ok := h.garmentIDs(w, r)
	if !ok {
		return
	}
	var req UpdateGarmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	garment, err := h.service.UpdateGarment(r.Context(), orderID, garmentID, req)
	if err != nil {
		h.logger.Error("update garment", slog.Any("error", err), slog.Int64("garment_id", garmentID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, garment)
}

func (h *Handler) addService(w http.ResponseWriter, r *http.Request) {
	orderID, garmentID, ok := h.garmentIDs(w, r)
	if !ok {
		return
	}
	var req CreateServiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}

	garment, err := h.service.AddService(r.Context(), orderID, garmentID, req)
	if err != nil {
		h.logger.Error("add service", slog.Any("error", err), slog.Int64("garment_id", garmentID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, garment)
}

func (h *Handler) setServiceDone(w http.ResponseWriter, r *http.Request) {
	orderID, garmentID, ok := h.garmentIDs(w, r)
	if !ok {
		return
	}
	serviceID, err := strconv.ParseInt(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "service id must be numeric")
		return
	}
	var req SetServiceDoneRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	garment, err := h.service.SetServiceDone(r.Context(), orderID, garmentID, serviceID, req.Done)
	if err != nil {
		h.logger.Error("set service done", slog.Any("error", err), slog.Int64("service_id", serviceID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, garment)
}

func (h *Handler) removeService(w http.ResponseWriter, r *http.Request) {
	orderID, garmentID, ok := h.garmentIDs(w, r)
	if !ok {
		return
	}
	serviceID, err := strconv.ParseInt(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "service id must be numeric")
		return
	}

	order, err := h.service.RemoveService(r.Context(), orderID, garmentID, serviceID)
	if err != nil {
		h.logger.Error("remove service", slog.Any("error", err), slog.Int64("service_id", serviceID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "order id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) garmentIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return 0, 0, false
	}
	garmentID, err := strconv.ParseInt(chi.URLParam(r, "garmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "garment id must be numeric")
		return 0, 0, false
	}
	return orderID, garmentID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrGarmentNotFound), errors.Is(err, ErrServiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrClientNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Client", err.Error())
	case errors.Is(err, ErrInvalidStage):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Stage", err.Error())
	case errors.Is(err, ErrGarmentFinished):
		httpx.Problem(w, http.StatusConflict, "Garment Finished", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
