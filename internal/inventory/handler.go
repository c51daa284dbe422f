package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler serves inventory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.listItems)
	r.Post("/items", h.createItem)
	r.Get("/items/{id}", h.getItem)
	r.Get("/items/{id}/movements", h.listMovements)
	r.Post("/items/{id}/receipts", h.receive)
	r.Post("/items/{id}/adjustments", h.adjust)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "1"
	items, err := h.service.ListItems(r.Context(), includeInactive)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type itemRequest struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
	Price       string `json:"price"`
	QtyOnHand   string `json:"qty_on_hand"`
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	fields := map[string]string{}
	if req.SKU == "" {
		fields["sku"] = "sku is required"
	}
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	cost := parseDecimalField(req.Cost, "cost", fields)
	price := parseDecimalField(req.Price, "price", fields)
	qty := parseDecimalField(req.QtyOnHand, "qty_on_hand", fields)
	if len(fields) > 0 {
		httpx.FieldProblem(w, "item is invalid", fields)
		return
	}
	item, err := h.service.CreateItem(r.Context(), CreateItemInput{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Cost:        cost,
		Price:       price,
		QtyOnHand:   qty,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	movements, err := h.service.ListMovements(r.Context(), id, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

type movementRequest struct {
	Qty      string `json:"qty"`
	UnitCost string `json:"unit_cost"`
	Note     string `json:"note"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.parseMovement(w, r, id)
	if !ok {
		return
	}
	if !in.Qty.IsPositive() {
		httpx.FieldProblem(w, "movement is invalid", map[string]string{"qty": "must be positive"})
		return
	}
	movement, err := h.service.Receive(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.parseMovement(w, r, id)
	if !ok {
		return
	}
	movement, err := h.service.Adjust(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) parseMovement(w http.ResponseWriter, r *http.Request, itemID int64) (MovementInput, bool) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return MovementInput{}, false
	}
	fields := map[string]string{}
	qty := parseDecimalField(req.Qty, "qty", fields)
	var unitCost decimal.Decimal
	if req.UnitCost != "" {
		unitCost = parseDecimalField(req.UnitCost, "unit_cost", fields)
	}
	if len(fields) > 0 {
		httpx.FieldProblem(w, "movement is invalid", fields)
		return MovementInput{}, false
	}
	return MovementInput{
		ItemID:   itemID,
		Qty:      qty,
		UnitCost: unitCost,
		Note:     req.Note,
	}, true
}

func parseDecimalField(raw, name string, fields map[string]string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		fields[name] = "must be a decimal number"
		return decimal.Zero
	}
	return d
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		err = httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateSKU):
		err = httpx.Classify(httpx.ErrDuplicate, err)
	case errors.Is(err, ErrNegativeStock), errors.Is(err, ErrInvalidQuantity):
		err = httpx.Classify(httpx.ErrUnprocessable, err)
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
