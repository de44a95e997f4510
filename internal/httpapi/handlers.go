package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/shineum/mail-relay-lite/internal/relay"
)

const (
	bannerText          = "Email API is running. POST /api/send-codelist-email"
	invalidJSONMessage  = "Invalid JSON body"
	bodyTooLargeMessage = "Request body too large"
)

type healthResponse struct {
	OK bool `json:"ok"`
}

type sendResponse struct {
	OK     bool `json:"ok"`
	Status int  `json:"status"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type handlers struct {
	relay Submitter
}

func (h *handlers) root(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, bannerText) //nolint:errcheck // client went away
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true})
}

func (h *handlers) sendEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			slog.WarnContext(ctx, "request body too large", "limit", maxErr.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, bodyTooLargeMessage)
			return
		}
		slog.WarnContext(ctx, "failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, invalidJSONMessage)
		return
	}

	req, err := relay.ParseRequest(body)
	if err != nil {
		slog.DebugContext(ctx, "rejected undecodable request body", "error", err)
		writeError(w, http.StatusBadRequest, invalidJSONMessage)
		return
	}

	res := h.relay.Submit(ctx, req)
	if res.Outcome == relay.Sent {
		writeJSON(w, res.HTTPStatus(), sendResponse{OK: true, Status: res.ProviderStatus})
		return
	}

	msg := relay.SendFailedMessage
	if res.Err != nil {
		msg = res.Err.Message
	}
	writeError(w, res.HTTPStatus(), msg)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{OK: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("httpapi: failed to encode response", "error", err)
	}
}
