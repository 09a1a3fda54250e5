package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SyncErrorDisabled        = "AISYNC_SYNC_DISABLED"
	SyncErrorURLMissing      = "AISYNC_URL_MISSING"
	SyncErrorInitFailed      = "AISYNC_INIT_FAILED"
	SyncErrorSecretMissing   = "AISYNC_JWT_SECRET_MISSING"
	SyncErrorPersistence     = "AISYNC_PERSISTENCE"
	SyncErrorNotFound        = "AISYNC_NOT_FOUND"
	SyncErrorRetryLimit      = "AISYNC_RETRY_LIMIT"
	SyncErrorBadInput        = "AISYNC_BAD_INPUT"
	SyncErrorExternalFailure = "AISYNC_EXTERNAL_FAILURE"
	SyncErrorInternal        = "AISYNC_INTERNAL_ERROR"
)

func syncErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSyncErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrSyncLogNotFound), errors.Is(err, ErrSyncLogNotRetryable):
		return newSyncError(err.Error(), goerrors.CategoryNotFound, SyncErrorNotFound)
	case errors.Is(err, ErrRetryLimitExceeded):
		return newSyncError(err.Error(), goerrors.CategoryConflict, SyncErrorRetryLimit)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newSyncError(err.Error(), goerrors.CategoryNotFound, SyncErrorNotFound)
	case strings.Contains(msg, "secret"):
		return newSyncError(err.Error(), goerrors.CategoryAuth, SyncErrorSecretMissing)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newSyncError(err.Error(), goerrors.CategoryBadInput, SyncErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSyncErrorEnvelope(mapped)
}

func newSyncError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureSyncErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureSyncErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = syncHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSyncTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSyncTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SyncErrorBadInput
	case goerrors.CategoryNotFound:
		return SyncErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SyncErrorSecretMissing
	case goerrors.CategoryConflict:
		return SyncErrorRetryLimit
	case goerrors.CategoryExternal:
		return SyncErrorExternalFailure
	case goerrors.CategoryOperation:
		return SyncErrorPersistence
	default:
		return SyncErrorInternal
	}
}

func syncHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// guardError builds the tagged, side-effect-free errors returned by the
// fail-fast pre-dispatch guards. Callers branch on the text code.
func guardError(message string, category goerrors.Category, textCode string) error {
	return goerrors.New(message, category).
		WithCode(syncHTTPStatus(category)).
		WithTextCode(textCode)
}

// IsTextCode reports whether err carries the given envelope text code.
func IsTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}
