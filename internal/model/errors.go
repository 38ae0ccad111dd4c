package model

import (
	"errors"
	"fmt"
)

// Категории ошибок. Каждая конкретная ошибка домена разворачивается ровно в одну категорию.
var (
	ErrValidation          = errors.New("validation error")
	ErrBusinessRule        = errors.New("business rule violation")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

type categorizedError struct {
	category error
	msg      string
}

func (e *categorizedError) Error() string { return e.msg }

func (e *categorizedError) Unwrap() error { return e.category }

func newError(category error, msg string) error {
	return &categorizedError{category: category, msg: msg}
}

// Validationf создаёт ошибку валидации с заданным сообщением.
func Validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// BusinessRulef создаёт ошибку нарушения бизнес-правила с заданным сообщением.
func BusinessRulef(format string, args ...any) error {
	return newError(ErrBusinessRule, fmt.Sprintf(format, args...))
}

var (
	ErrNonPositiveAmount     = newError(ErrValidation, "amount must be greater than zero")
	ErrAmountPrecision       = newError(ErrValidation, "amount must have at most 2 decimal places")
	ErrTermFieldsRequired    = newError(ErrValidation, "term accounts require principal, term months and monthly rate greater than zero")
	ErrAuthorizationRequired = newError(ErrValidation, "deposits above the authorization threshold require authorization code and funds origin")
	ErrCannotClose           = newError(ErrValidation, "account cannot be closed while it has balance or garnishments")

	ErrInsufficientFunds          = newError(ErrBusinessRule, "withdrawal exceeds available balance")
	ErrAccountGarnished           = newError(ErrBusinessRule, "account is fully garnished")
	ErrSameAccount                = newError(ErrBusinessRule, "origin and destination accounts must differ")
	ErrTermWithdrawal             = newError(ErrBusinessRule, "term accounts do not allow withdrawals or outgoing transfers")
	ErrTermDeposit                = newError(ErrBusinessRule, "term accounts do not accept deposits or incoming transfers")
	ErrNotTermAccount             = newError(ErrBusinessRule, "operation is valid only for term accounts")
	ErrAccountNotOperable         = newError(ErrBusinessRule, "account is inactive or closed")
	ErrAccountClosed              = newError(ErrBusinessRule, "account is closed")
	ErrCustomerInactive           = newError(ErrBusinessRule, "customer is inactive")
	ErrDuplicateDocument          = newError(ErrBusinessRule, "customer with this document already exists")
	ErrDuplicateOrder             = newError(ErrBusinessRule, "garnishment order number already registered")
	ErrRateNotConfigured          = newError(ErrBusinessRule, "exchange rate for today is not configured")
	ErrGarnishmentExceedsBalance  = newError(ErrBusinessRule, "garnishment amount exceeds account balance")
	ErrGarnishmentAlreadyReleased = newError(ErrBusinessRule, "garnishment already released")

	ErrCustomerNotFound    = newError(ErrNotFound, "customer not found")
	ErrAccountNotFound     = newError(ErrNotFound, "account not found")
	ErrGarnishmentNotFound = newError(ErrNotFound, "garnishment not found")
	ErrRateNotFound        = newError(ErrNotFound, "exchange rate not found")

	ErrDuplicateAccountNumber = newError(ErrConcurrencyConflict, "account number already assigned")
)
