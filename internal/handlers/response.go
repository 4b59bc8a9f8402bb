package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/hungpv1995/community-board/internal/repository"
)

type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type apiError struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondSuccess(w http.ResponseWriter, status int, message string, data, meta interface{}) {
	writeJSON(w, status, apiResponse{Success: true, Message: message, Data: data, Meta: meta})
}

func respondError(w http.ResponseWriter, status int, message string, details interface{}) {
	writeJSON(w, status, apiError{
		Success: false,
		Message: message,
		Error:   errorBody{Code: status, Details: details},
	})
}

// respondRepoError maps repository sentinels to status codes. Anything
// unexpected is logged and reported as a 500.
func respondRepoError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "Resource not found", nil)
	case errors.Is(err, repository.ErrConflict):
		respondError(w, http.StatusConflict, "Resource already exists", err.Error())
	default:
		log.Printf("Failed to %s: %v", action, err)
		respondError(w, http.StatusInternalServerError, "Failed to "+action, nil)
	}
}

// decodeBody decodes a JSON request body. An empty body decodes to the zero value.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// clientIP returns the connection address. Behind a trusted proxy it prefers
// the first X-Forwarded-For hop, which clients can otherwise set freely.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
