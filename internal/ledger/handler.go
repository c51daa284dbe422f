package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler serves the chart of accounts and check writing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Get("/accounts/{id}", h.getAccount)
	r.Put("/accounts/{id}", h.updateAccount)
	r.Delete("/accounts/{id}", h.deleteAccount)
	r.Get("/accounts/{id}/balance", h.getBalance)
	r.Post("/checks", h.writeCheck)
}

type accountRequest struct {
	Code           string  `json:"code" validate:"required,max=20"`
	Name           string  `json:"name" validate:"required,max=120"`
	Type           string  `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	ParentID       *int64  `json:"parent_id"`
	ReportingRole  *string `json:"reporting_role" validate:"omitempty,oneof=BANK RECEIVABLE INVENTORY PAYABLE"`
	OpeningBalance string  `json:"opening_balance"`
	IsActive       *bool   `json:"is_active"`
	SortOrder      int     `json:"sort_order"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "1"
	accounts, err := h.service.ListAccounts(r.Context(), includeInactive)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if fields := h.validationFields(req); fields != nil {
		httpx.FieldProblem(w, "account is invalid", fields)
		return
	}

	opening, err := parseAmount(req.OpeningBalance)
	if err != nil {
		httpx.FieldProblem(w, "account is invalid", map[string]string{"opening_balance": "must be a decimal number"})
		return
	}

	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		Code:           req.Code,
		Name:           req.Name,
		Type:           AccountType(req.Type),
		ParentID:       req.ParentID,
		ReportingRole:  roleFromString(req.ReportingRole),
		OpeningBalance: opening,
		SortOrder:      req.SortOrder,
		ActorID:        actorID(r),
	})
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	var req accountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if fields := h.validationFields(req); fields != nil {
		httpx.FieldProblem(w, "account is invalid", fields)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	account, err := h.service.UpdateAccount(r.Context(), UpdateAccountInput{
		ID:            id,
		Code:          req.Code,
		Name:          req.Name,
		Type:          AccountType(req.Type),
		ParentID:      req.ParentID,
		ReportingRole: roleFromString(req.ReportingRole),
		IsActive:      active,
		SortOrder:     req.SortOrder,
		ActorID:       actorID(r),
	})
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id, actorID(r)); err != nil {
		h.respondLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	lookup, err := h.service.GetBalance(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lookup)
}

// writeCheck accepts a classic HTML form post: header fields plus
// indexed expense lines named expenses[N][account_id] and so on.
func (h *Handler) writeCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form body")
		return
	}

	fields := map[string]string{}
	input, ok := parseCheckForm(r, fields)
	if !ok {
		httpx.FieldProblem(w, "check is invalid", fields)
		return
	}
	input.ActorID = actorID(r)

	result, err := h.service.WriteCheck(r.Context(), input)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment":  result.Payment,
		"journals": result.Journals,
		"message":  fmt.Sprintf("Check %s recorded for %s", result.Payment.Number, shared.FormatMoney(result.Payment.Amount)),
	})
}

func parseCheckForm(r *http.Request, fields map[string]string) (WriteCheckInput, bool) {
	var input WriteCheckInput

	bankID, err := strconv.ParseInt(r.PostFormValue("bank_account_id"), 10, 64)
	if err != nil || bankID == 0 {
		fields["bank_account_id"] = "bank account is required"
	}
	input.BankAccountID = bankID

	input.PayTo = r.PostFormValue("pay_to")
	if input.PayTo == "" {
		fields["pay_to"] = "payee is required"
	}
	input.PayToAddress = r.PostFormValue("pay_to_address")
	input.CheckNumber = r.PostFormValue("check_number")
	input.Memo = r.PostFormValue("memo")
	input.PrintLater = r.PostFormValue("print_later") == "1"
	input.PayOnline = r.PostFormValue("pay_online") == "1"

	input.Date, err = time.Parse("2006-01-02", r.PostFormValue("check_date"))
	if err != nil {
		fields["check_date"] = "date must be YYYY-MM-DD"
	}

	if raw := r.PostFormValue("amount"); raw != "" {
		input.Amount, err = decimal.NewFromString(raw)
		if err != nil {
			fields["amount"] = "must be a decimal number"
		}
	}

	for i := 0; ; i++ {
		prefix := fmt.Sprintf("expenses[%d]", i)
		if !r.PostForm.Has(prefix+"[account_id]") && !r.PostForm.Has(prefix+"[amount]") && !r.PostForm.Has(prefix+"[memo]") {
			break
		}
		var line CheckLine
		if raw := r.PostFormValue(prefix + "[account_id]"); raw != "" {
			line.AccountID, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				fields[prefix+"[account_id]"] = "must be an account id"
			}
		}
		if raw := r.PostFormValue(prefix + "[amount]"); raw != "" {
			line.Amount, err = decimal.NewFromString(raw)
			if err != nil {
				fields[prefix+"[amount]"] = "must be a decimal number"
			}
		}
		line.Memo = r.PostFormValue(prefix + "[memo]")
		input.Lines = append(input.Lines, line)
	}

	return input, len(fields) == 0
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		err = httpx.Classify(httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateCode):
		err = httpx.Classify(httpx.ErrDuplicate, err)
	case errors.Is(err, ErrAccountHasChildren),
		errors.Is(err, ErrAccountHasPostings),
		errors.Is(err, ErrTypeImmutable):
		err = httpx.Classify(httpx.ErrConflict, err)
	case errors.Is(err, ErrOwnParent),
		errors.Is(err, ErrParentDepth),
		errors.Is(err, ErrParentTypeMismatch),
		errors.Is(err, ErrNoExpenseLines),
		errors.Is(err, ErrNonPositiveAmount):
		err = httpx.Classify(httpx.ErrValidation, err)
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) validationFields(req any) map[string]string {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"general": "invalid payload"}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = "failed " + fe.Tag() + " validation"
	}
	return fields
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// actorID pulls the acting user from the X-Actor-ID header set by the
// authentication proxy in front of this service.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

func roleFromString(s *string) *ReportingRole {
	if s == nil || *s == "" {
		return nil
	}
	role := ReportingRole(*s)
	return &role
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
