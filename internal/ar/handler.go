package ar

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler serves receivables endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers receivables routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.listCustomers)
	r.Post("/customers", h.createCustomer)
	r.Get("/invoices", h.listInvoices)
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Post("/invoices/{id}/receipts", h.recordReceipt)
	r.Get("/aging", h.aging)
	r.Get("/balances", h.balanceSummary)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "1"
	customers, err := h.service.ListCustomers(r.Context(), includeInactive)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": customers})
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.Name == "" {
		httpx.FieldProblem(w, "customer is invalid", map[string]string{"name": "name is required"})
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), CreateCustomerInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	var customerID *int64
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.FieldProblem(w, "invalid filters", map[string]string{"customer_id": "must be an id"})
			return
		}
		customerID = &id
	}
	invoices, err := h.service.ListInvoices(r.Context(), customerID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

type invoiceRequest struct {
	Number     string `json:"number"`
	CustomerID int64  `json:"customer_id"`
	Date       string `json:"date"`
	DueDate    string `json:"due_date"`
	Total      string `json:"total"`
	Memo       string `json:"memo"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	fields := map[string]string{}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		fields["total"] = "must be a decimal number"
	} else if !total.IsPositive() {
		fields["total"] = "must be positive"
	}
	if req.CustomerID == 0 {
		fields["customer_id"] = "customer is required"
	}
	var date, due time.Time
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			fields["date"] = "must be YYYY-MM-DD"
		}
	}
	if req.DueDate != "" {
		if due, err = time.Parse("2006-01-02", req.DueDate); err != nil {
			fields["due_date"] = "must be YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		httpx.FieldProblem(w, "invoice is invalid", fields)
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), CreateInvoiceInput{
		Number:     req.Number,
		CustomerID: req.CustomerID,
		Date:       date,
		DueDate:    due,
		Total:      total,
		Memo:       req.Memo,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	invoice, receipts, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice": invoice, "receipts": receipts})
}

type receiptRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Method string `json:"method"`
	Note   string `json:"note"`
}

func (h *Handler) recordReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httpx.FieldProblem(w, "receipt is invalid", map[string]string{"amount": "must be a positive decimal"})
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			httpx.FieldProblem(w, "receipt is invalid", map[string]string{"date": "must be YYYY-MM-DD"})
			return
		}
	}
	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)

	receipt, err := h.service.RecordReceipt(r.Context(), ReceiptInput{
		InvoiceID: id,
		Amount:    amount,
		Date:      date,
		Method:    req.Method,
		Note:      req.Note,
		ActorID:   actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	cutoff, err := h.parseCutoff(r)
	if err != nil {
		httpx.FieldProblem(w, "invalid filters", map[string]string{"as_of": "must be YYYY-MM-DD"})
		return
	}
	report, err := h.service.Aging(r.Context(), cutoff)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) balanceSummary(w http.ResponseWriter, r *http.Request) {
	cutoff, err := h.parseCutoff(r)
	if err != nil {
		httpx.FieldProblem(w, "invalid filters", map[string]string{"as_of": "must be YYYY-MM-DD"})
		return
	}
	rows, err := h.service.BalanceSummary(r.Context(), cutoff)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"balances": rows})
}

func (h *Handler) parseCutoff(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		now := h.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		err = httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateNumber):
		err = httpx.Classify(httpx.ErrDuplicate, err)
	case errors.Is(err, ErrInvoiceClosed), errors.Is(err, ErrOverpayment):
		err = httpx.Classify(httpx.ErrConflict, err)
	default:
		h.logger.Error("ar request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
