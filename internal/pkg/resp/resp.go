/*
Package resp provides helpers for writing the relay's JSON HTTP responses.

Every response shares one envelope: a business code (0 for success), a message and
an optional data payload.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"syncboard/internal/pkg/errs"
	"syncboard/internal/pkg/logx"
)

// JSONResponse is the envelope returned to HTTP clients.
type JSONResponse struct {
	// Code is the business status code (0 for success, otherwise an errs code).
	Code int `json:"code"`

	// Message is the client-facing status description or error message.
	Message string `json:"message"`

	// Data is the optional payload, such as the health report.
	Data any `json:"data,omitempty"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Debug("Client went away before the response was written", "error", err.Error())
	}
}

// RespondSuccess writes a 200 response carrying data.
func RespondSuccess(w http.ResponseWriter, data any) {
	RespondJSON(w, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError writes customErr using its own HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
