package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// parseUUID wraps uuid.Parse.
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// urlUUID parses the named chi URL parameter. It writes a 400 and returns
// false when the parameter is not a UUID.
func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := parseUUID(chi.URLParam(r, param))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
