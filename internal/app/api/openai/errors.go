package openai

import (
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"clipscout/internal/app/api/provider"
)

// operationError classifies a go-openai failure as retryable or not
func operationError(name, operation string, err error) error {
	opErr := provider.NewOperationError(name, operation, err)

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		opErr.Retryable = retryableStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		opErr.Retryable = retryableStatus(reqErr.HTTPStatusCode)
	default:
		// transport failure, no status
		opErr.Retryable = true
	}
	return opErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest,
		http.StatusNotFound, http.StatusRequestEntityTooLarge:
		return false
	case http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}
