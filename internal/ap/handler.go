package ap

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

// Handler serves payables endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers payables routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Get("/bills", h.listBills)
	r.Post("/bills", h.createBill)
	r.Get("/bills/{id}", h.getBill)
	r.Post("/bills/{id}/payments", h.payBill)
	r.Get("/aging", h.aging)
	r.Get("/balances", h.balanceSummary)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "1"
	suppliers, err := h.service.ListSuppliers(r.Context(), includeInactive)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

type supplierRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.Name == "" {
		httpx.FieldProblem(w, "supplier is invalid", map[string]string{"name": "name is required"})
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), CreateSupplierInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	var supplierID *int64
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.FieldProblem(w, "invalid filters", map[string]string{"supplier_id": "must be an id"})
			return
		}
		supplierID = &id
	}
	bills, err := h.service.ListBills(r.Context(), supplierID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills})
}

type billRequest struct {
	Number     string `json:"number"`
	SupplierID int64  `json:"supplier_id"`
	Date       string `json:"date"`
	DueDate    string `json:"due_date"`
	Total      string `json:"total"`
	Memo       string `json:"memo"`
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
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
	if req.SupplierID == 0 {
		fields["supplier_id"] = "supplier is required"
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
		httpx.FieldProblem(w, "bill is invalid", fields)
		return
	}

	bill, err := h.service.CreateBill(r.Context(), CreateBillInput{
		Number:     req.Number,
		SupplierID: req.SupplierID,
		Date:       date,
		DueDate:    due,
		Total:      total,
		Memo:       req.Memo,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	bill, payments, err := h.service.GetBill(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bill": bill, "payments": payments})
}

type paymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Method string `json:"method"`
	Note   string `json:"note"`
}

func (h *Handler) payBill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bill id")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httpx.FieldProblem(w, "payment is invalid", map[string]string{"amount": "must be a positive decimal"})
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			httpx.FieldProblem(w, "payment is invalid", map[string]string{"date": "must be YYYY-MM-DD"})
			return
		}
	}
	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)

	payment, err := h.service.PayBill(r.Context(), BillPaymentInput{
		BillID:  id,
		Amount:  amount,
		Date:    date,
		Method:  req.Method,
		Note:    req.Note,
		ActorID: actorID,
	})

	var postErr *LedgerPostError
	if errors.As(err, &postErr) {
		// The payment itself committed.
		httpx.JSON(w, http.StatusCreated, map[string]any{"payment": payment, "warning": postErr.Message})
		return
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
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
	case errors.Is(err, ErrSupplierNotFound), errors.Is(err, ErrBillNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		err = httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateNumber):
		err = httpx.Classify(httpx.ErrDuplicate, err)
	case errors.Is(err, ErrBillClosed), errors.Is(err, ErrOverpayment):
		err = httpx.Classify(httpx.ErrConflict, err)
	default:
		h.logger.Error("ap request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
