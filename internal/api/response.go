package api

import (
	"encoding/json"
	"net/http"
)

type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Data: data})
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	JSONErrorKind(w, status, "", message)
}

// JSONErrorKind writes an error body carrying a machine-readable kind so
// clients can tell failure classes apart without parsing messages.
func JSONErrorKind(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Error: message, Kind: kind})
}
