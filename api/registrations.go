package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/summitworks/conference-registration/registration"
	"github.com/summitworks/conference-registration/slices"
)

type ListRegistrationsResponse struct {
	Data        []Registration `json:"data"`
	Cursor      *string        `json:"cursor,omitempty"`
	HasNextPage bool           `json:"hasNextPage"`
}

func (a *API) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	logger := a.getLoggerOrBaseLogger(r.Context())

	limit := 10
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		userLimit, err := strconv.Atoi(limitParam)
		if err != nil || userLimit < 1 || userLimit > 50 {
			logger.Warn("Limit out of bounds", "limit", limitParam)

			writeError(w, http.StatusBadRequest, LimitOutOfBounds, "Limit must be between 1 and 50")
			return
		}
		limit = userLimit
	}

	var cursor *string
	if cursorParam := r.URL.Query().Get("cursor"); cursorParam != "" {
		cursor = &cursorParam
	}

	result, err := a.db.GetAllRegistrations(r.Context(), int32(limit), cursor)
	if err != nil {
		logger.Error("Failed to get registrations", "error", err)

		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) && registrationErr.Reason == registration.REASON_INVALID_CURSOR {
			writeError(w, http.StatusBadRequest, InvalidCursor, "Cursor is invalid")
			return
		}

		writeError(w, http.StatusInternalServerError, InternalError, "Failed to get registrations")
		return
	}

	writeJSON(w, http.StatusOK, ListRegistrationsResponse{
		Data: slices.Map(result.Data, func(v registration.RegistrationRecord) Registration {
			return recordToApiRegistration(v)
		}),
		Cursor:      result.Cursor,
		HasNextPage: result.HasNextPage,
	})
}
