package httpadapter

import (
	"net/http"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrToolNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrRerankerUnavailable),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
