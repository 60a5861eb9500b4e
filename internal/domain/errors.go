package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers and used for errors.As matching.
const (
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodeTicketNotFound      = "TICKET_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodePrizeNotFound       = "PRIZE_NOT_FOUND"
	CodeGameNotOpen         = "GAME_NOT_OPEN"
	CodeTicketTaken         = "TICKET_TAKEN"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeConflict            = "CONFLICT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// IsCode reports whether any error in err's chain is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Standard domain error constructors.

func ErrGameNotFound(gameID string) *AppError {
	return &AppError{Code: CodeGameNotFound, Message: fmt.Sprintf("game %s not found", gameID), Status: 404}
}

func ErrTicketNotFound(gameID string, number int64) *AppError {
	return &AppError{Code: CodeTicketNotFound, Message: fmt.Sprintf("ticket %d not found in game %s", number, gameID), Status: 404}
}

func ErrUserNotFound(userID string) *AppError {
	return &AppError{Code: CodeUserNotFound, Message: fmt.Sprintf("user %s not found", userID), Status: 404}
}

func ErrPrizeNotFound(prizeID string) *AppError {
	return &AppError{Code: CodePrizeNotFound, Message: fmt.Sprintf("prize %s not found", prizeID), Status: 404}
}

func ErrGameNotOpen(gameID string, status GameStatus) *AppError {
	return &AppError{Code: CodeGameNotOpen, Message: fmt.Sprintf("game %s is %s", gameID, status), Status: 409}
}

func ErrTicketTaken(gameID string, number int64) *AppError {
	return &AppError{Code: CodeTicketTaken, Message: fmt.Sprintf("ticket %d already sold in game %s", number, gameID), Status: 409}
}

func ErrStoreUnavailable(store string, cause error) *AppError {
	return &AppError{Code: CodeStoreUnavailable, Message: fmt.Sprintf("%s store unavailable", store), Status: 503, Cause: cause}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrInsufficientBalance() *AppError {
	return &AppError{Code: CodeInsufficientBalance, Message: "insufficient balance", Status: 400}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}
