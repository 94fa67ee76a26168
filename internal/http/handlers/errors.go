package handlers

import (
	"errors"
	"net/http"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/apierr"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/filestore"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

// classify maps a pipeline error onto an HTTP status. collaboratorStatus is
// per route; search reports upstream failures as 502 and upload as 500.
func classify(err error, collaboratorStatus int) *apierr.Error {
	var (
		verr *services.ValidationError
		cerr *services.CollaboratorError
		perr *services.EmbeddingProviderError
	)
	switch {
	case errors.As(err, &verr), errors.Is(err, filestore.ErrInvalidName):
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, services.ErrResourceNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.As(err, &cerr), errors.As(err, &perr):
		return apierr.New(collaboratorStatus, "collaborator_failed", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}
