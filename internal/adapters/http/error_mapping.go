package httpadapter

import (
	"net/http"

	"github.com/veralend/loandocs/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrLoanNotFound),
		domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrRequirementNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
