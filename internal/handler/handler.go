// Package handler содержит HTTP-обработчики API бэк-офиса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/middleware"
	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterCustomer(ctx context.Context, actor string, in service.CustomerInput) (*model.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	GetCustomerByDocument(ctx context.Context, docType model.DocumentType, number string) (*model.Customer, error)
	CustomerAccounts(ctx context.Context, customerID int64) ([]model.Account, error)
	UpdateCustomerContact(ctx context.Context, actor string, id int64, upd service.ContactUpdate) (*model.Customer, error)
	DeactivateCustomer(ctx context.Context, actor string, id int64) (*model.Customer, error)
	ReactivateCustomer(ctx context.Context, actor string, id int64) (*model.Customer, error)

	OpenAccount(ctx context.Context, actor string, in service.OpenAccountInput) (*model.Account, error)
	GetAccount(ctx context.Context, number string) (*model.Account, error)
	CloseAccount(ctx context.Context, actor string, number string) (*model.Account, error)
	DeactivateAccount(ctx context.Context, actor string, number string) (*model.Account, error)
	ReactivateAccount(ctx context.Context, actor string, number string) (*model.Account, error)
	AccruedInterest(ctx context.Context, number string) (decimal.Decimal, error)
	AccountsDueForInactivation(ctx context.Context) ([]model.Account, error)
	Statement(ctx context.Context, number string) ([]model.Movement, error)

	Deposit(ctx context.Context, actor string, in service.DepositInput) (*model.Movement, error)
	Withdraw(ctx context.Context, actor string, in service.WithdrawalInput) (*model.Movement, error)
	Transfer(ctx context.Context, actor string, in service.TransferInput) (*service.TransferResult, error)

	Garnish(ctx context.Context, actor string, in service.GarnishmentInput) (*model.Garnishment, error)
	ReleaseGarnishment(ctx context.Context, actor string, id int64) (*model.Garnishment, error)
	Garnishments(ctx context.Context, accountNumber string, activeOnly bool) ([]model.Garnishment, error)

	CancelTerm(ctx context.Context, actor string, number string) (*service.TermSettlement, error)
	RenewTerm(ctx context.Context, actor string, in service.RenewTermInput) (*service.TermSettlement, error)

	SetDailyRate(ctx context.Context, actor string, buy, sell decimal.Decimal) (*model.ExchangeRate, error)
	CurrentRate(ctx context.Context) (*model.ExchangeRate, error)
	RateFor(ctx context.Context, day time.Time) (*model.ExchangeRate, error)
	Convert(ctx context.Context, amount decimal.Decimal, from, to model.Currency) (decimal.Decimal, decimal.Decimal, error)

	DailySummary(ctx context.Context, day time.Time) (*model.DailySummary, error)
}

// Handler реализует HTTP-обработчики API бэк-офиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	loc            *time.Location
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// loc задаёт часовой пояс, в котором разбираются даты из запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		loc:            loc,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrBusinessRule):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConcurrencyConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает статусом категории ошибки. Текст внутренних ошибок клиенту не отдаётся.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.Validationf("malformed request body: %v", err)
	}
	return nil
}

// operator возвращает логин оператора из контекста; при его отсутствии отвечает 401.
func (h *Handler) operator(w http.ResponseWriter, r *http.Request) (string, bool) {
	login, ok := middleware.OperatorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return "", false
	}
	return login, true
}

type sessionRequest struct {
	Login string `json:"login"`
}

// Login открывает сессию оператора и устанавливает cookie авторизации.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.authMiddleware.SetAuthCookie(w, login)
	h.logger.Info("operator session opened", zap.String("operator", login))
	w.WriteHeader(http.StatusOK)
}
