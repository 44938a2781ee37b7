// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error envelope for every non-2xx response.
type errorBody struct {
	Error       string   `json:"error"`
	Specs       any      `json:"specs,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope with the given status code
func writeError(w http.ResponseWriter, code int, msg string, suggestions []string) {
	writeJSON(w, code, errorBody{Error: msg, Suggestions: suggestions})
}
