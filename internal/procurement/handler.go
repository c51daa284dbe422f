package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler serves purchase-order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase-order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchase-orders", h.list)
	r.Post("/purchase-orders", h.create)
	r.Get("/purchase-orders/{id}", h.get)
	r.Post("/purchase-orders/{id}/open", h.open)
	r.Post("/purchase-orders/{id}/close", h.close)
	r.Post("/purchase-orders/{id}/cancel", h.cancel)
	r.Post("/purchase-orders/{id}/receipts", h.receive)
	r.Post("/purchase-orders/{id}/payments", h.recordPayment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var supplierID *int64
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.FieldProblem(w, "invalid filters", map[string]string{"supplier_id": "must be an id"})
			return
		}
		supplierID = &id
	}
	orders, err := h.service.ListPOs(r.Context(), supplierID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": orders})
}

type poLineRequest struct {
	ItemID      int64  `json:"item_id"`
	Description string `json:"description"`
	Qty         string `json:"qty"`
	UnitCost    string `json:"unit_cost"`
}

type poRequest struct {
	SupplierID   int64           `json:"supplier_id"`
	Number       string          `json:"number"`
	OrderDate    string          `json:"order_date"`
	ExpectedDate string          `json:"expected_date"`
	Memo         string          `json:"memo"`
	Lines        []poLineRequest `json:"lines"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req poRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	fields := map[string]string{}
	if req.SupplierID == 0 {
		fields["supplier_id"] = "supplier is required"
	}
	if len(req.Lines) == 0 {
		fields["lines"] = "at least one line is required"
	}
	orderDate := parseDateField(req.OrderDate, "order_date", fields)
	var expected *time.Time
	if req.ExpectedDate != "" {
		d := parseDateField(req.ExpectedDate, "expected_date", fields)
		expected = &d
	}
	in := CreatePOInput{
		SupplierID:   req.SupplierID,
		Number:       req.Number,
		OrderDate:    orderDate,
		ExpectedDate: expected,
		Memo:         req.Memo,
		ActorID:      actorID(r),
	}
	for i, l := range req.Lines {
		qty := parseDecimalField(l.Qty, "lines."+strconv.Itoa(i)+".qty", fields)
		cost := parseDecimalField(l.UnitCost, "lines."+strconv.Itoa(i)+".unit_cost", fields)
		if !qty.IsPositive() {
			fields["lines."+strconv.Itoa(i)+".qty"] = "must be positive"
		}
		in.Lines = append(in.Lines, CreatePOLineInput{
			ItemID: l.ItemID, Description: l.Description, Qty: qty, UnitCost: cost,
		})
	}
	if len(fields) > 0 {
		httpx.FieldProblem(w, "purchase order is invalid", fields)
		return
	}
	po, err := h.service.CreatePO(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, lines, err := h.service.GetPO(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_order": po, "lines": lines})
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Open)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Close)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.doTransition(w, r, h.service.Cancel)
}

func (h *Handler) doTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (PurchaseOrder, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	po, err := fn(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type receiveLineRequest struct {
	LineID int64  `json:"line_id"`
	Qty    string `json:"qty"`
}

type receiveRequest struct {
	Lines []receiveLineRequest `json:"lines"`
	Note  string               `json:"note"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	fields := map[string]string{}
	if len(req.Lines) == 0 {
		fields["lines"] = "at least one line is required"
	}
	in := ReceiveInput{POID: id, Note: req.Note, ActorID: actorID(r)}
	for i, l := range req.Lines {
		qty := parseDecimalField(l.Qty, "lines."+strconv.Itoa(i)+".qty", fields)
		in.Lines = append(in.Lines, ReceiveLineInput{LineID: l.LineID, Qty: qty})
	}
	if len(fields) > 0 {
		httpx.FieldProblem(w, "receipt is invalid", fields)
		return
	}
	po, err := h.service.Receive(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type paymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Memo   string `json:"memo"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	fields := map[string]string{}
	amount := parseDecimalField(req.Amount, "amount", fields)
	if !amount.IsPositive() {
		fields["amount"] = "must be positive"
	}
	var date time.Time
	if req.Date != "" {
		date = parseDateField(req.Date, "date", fields)
	}
	if len(fields) > 0 {
		httpx.FieldProblem(w, "payment is invalid", fields)
		return
	}
	po, err := h.service.RecordPayment(r.Context(), PaymentInput{
		POID: id, Amount: amount, Date: date, Memo: req.Memo, ActorID: actorID(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func parseDecimalField(raw, name string, fields map[string]string) decimal.Decimal {
	if raw == "" {
		fields[name] = "is required"
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		fields[name] = "must be a decimal number"
		return decimal.Zero
	}
	return d
}

func parseDateField(raw, name string, fields map[string]string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		fields[name] = "must be YYYY-MM-DD"
	}
	return t
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPONotFound), errors.Is(err, ErrLineNotFound), errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, inventory.ErrItemNotFound):
		err = httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrOverReceipt), errors.Is(err, ErrOverpayment):
		err = httpx.Classify(httpx.ErrConflict, err)
	case errors.Is(err, ErrNoLines), errors.Is(err, inventory.ErrInvalidQuantity):
		err = httpx.Classify(httpx.ErrUnprocessable, err)
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
