// Package httpx holds the JSON plumbing shared by the console handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

var ErrBadRequest = errors.New("bad request")

// ErrorBody is the error payload the browser console reads.
type ErrorBody struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Message: message})
}

// DecodeJSON rejects unknown fields so typos in the console surface as 400s.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// PathUUID reads a uuid route variable.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}
	return id, nil
}

// ParseView decodes the view query on top of base and checks it against the
// table's columns.
func ParseView[R any](r *http.Request, table *tableview.Table[R], base tableview.ViewState) (tableview.ViewState, error) {
	state, err := tableview.ParseQueryInto(base, r.URL.Query())
	if err != nil {
		return tableview.ViewState{}, err
	}
	if err := table.Validate(state); err != nil {
		return tableview.ViewState{}, err
	}
	return state, nil
}
