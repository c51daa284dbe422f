package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler serves the report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/balance-sheet", h.balanceSheet)
	r.Get("/reports/income-statement", h.incomeStatement)
	r.Get("/reports/cash-flow", h.cashFlow)
	r.Get("/reports/general-ledger", h.generalLedger)
	r.Get("/reports/general-ledger/export", h.generalLedgerCSV)
	r.Get("/reports/accounts/{id}/detail", h.subAccountDetail)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.parseAsOf(r)
	if err != nil {
		httpx.FieldProblem(w, "invalid filters", map[string]string{"as_of": shared.UserSafeMessage(err)})
		return
	}
	report, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	from, to, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.FieldProblem(w, "invalid filters", fields)
		return
	}
	report, err := h.service.BalanceSheet(r.Context(), from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.FieldProblem(w, "invalid filters", fields)
		return
	}
	report, err := h.service.IncomeStatement(r.Context(), from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.FieldProblem(w, "invalid filters", fields)
		return
	}
	report, err := h.service.CashFlow(r.Context(), from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	from, to, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.FieldProblem(w, "invalid filters", fields)
		return
	}
	accountID, ok := h.parseAccountID(w, r)
	if !ok {
		return
	}
	report, err := h.service.GeneralLedger(r.Context(), from, to, accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) generalLedgerCSV(w http.ResponseWriter, r *http.Request) {
	from, to, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.FieldProblem(w, "invalid filters", fields)
		return
	}
	accountID, ok := h.parseAccountID(w, r)
	if !ok {
		return
	}
	report, err := h.service.GeneralLedger(r.Context(), from, to, accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	filename := GeneralLedgerCSVFilename(to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := WriteGeneralLedgerCSV(w, report); err != nil {
		h.logger.Error("stream general ledger csv", slog.Any("error", err))
	}
}

func (h *Handler) subAccountDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	from, to, fields := h.parsePeriod(r)
	if fields != nil {
		httpx.FieldProblem(w, "invalid filters", fields)
		return
	}
	report, err := h.service.SubAccountDetail(r.Context(), id, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// parseAsOf reads as_of, defaulting to today.
func (h *Handler) parseAsOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.today(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.ErrInvalidDate
	}
	return t, nil
}

// parsePeriod reads date_from and date_to, defaulting to the start of
// the current year and today.
func (h *Handler) parsePeriod(r *http.Request) (time.Time, time.Time, map[string]string) {
	fields := map[string]string{}
	today := h.today()
	from := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := today

	var err error
	if raw := r.URL.Query().Get("date_from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			fields["date_from"] = "must be YYYY-MM-DD"
		}
	}
	if raw := r.URL.Query().Get("date_to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			fields["date_to"] = "must be YYYY-MM-DD"
		}
	}
	if len(fields) == 0 && to.Before(from) {
		fields["date_to"] = "must not precede date_from"
	}
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, fields
	}
	return from, to, nil
}

// parseAccountID reads the optional account_id filter. The second
// return is false when the value was present but malformed; the
// response has already been written in that case.
func (h *Handler) parseAccountID(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("account_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.FieldProblem(w, "invalid filters", map[string]string{"account_id": "must be an account id"})
		return nil, false
	}
	return &id, true
}

func (h *Handler) today() time.Time {
	now := h.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		err = httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ledger.ErrInvalidRange):
		err = httpx.Classify(httpx.ErrValidation, err)
	default:
		h.logger.Error("report request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
