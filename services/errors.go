package services

import (
	"errors"
	"fmt"
	"net/http"

	"tweetube/repositories"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers that mean "retry later".
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

type AppError struct {
	HTTPCode int
	Message  string
	Data     interface{}
	Err      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newAppError(httpCode int, message string, err error) *AppError {
	return &AppError{HTTPCode: httpCode, Message: message, Err: err}
}

func newAppErrorWithData(httpCode int, message string, data interface{}, err error) *AppError {
	return &AppError{HTTPCode: httpCode, Message: message, Data: data, Err: err}
}

func newNotFound(message string) *AppError {
	return newAppError(http.StatusNotFound, message, nil)
}

func newValidation(message string) *AppError {
	return newAppError(http.StatusBadRequest, message, nil)
}

func newConflict(message string, err error) *AppError {
	return newAppError(http.StatusConflict, message, err)
}

func newInternal(message string, err error) *AppError {
	return newAppError(http.StatusInternalServerError, message, err)
}

// IsConflict reports whether err is a Conflict AppError.
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.HTTPCode == http.StatusConflict
}

// IsRetryable reports whether err is a Conflict caused by lock or
// transaction contention. Conflicts on caller input, such as a taken
// username, are not retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.HTTPCode != http.StatusConflict {
		return false
	}
	return isContentionError(appErr.Err)
}

func isContentionError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, repositories.ErrLockHeld) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return true
		}
	}
	return false
}

// translateStorageError maps a repository or transaction error onto the
// AppError taxonomy. AppErrors raised inside a transaction pass through.
func translateStorageError(err error, notFoundMessage string, internalMessage string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newNotFound(notFoundMessage)
	}
	if isContentionError(err) {
		return newConflict("operation conflicted with a concurrent change", err)
	}
	return newInternal(internalMessage, err)
}
