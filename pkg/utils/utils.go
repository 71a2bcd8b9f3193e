package utils

import (
	"encoding/json"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the shape of every error response the service writes.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func NewErrorBody(status int, code, message string) ErrorBody {
	return ErrorBody{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	}
}

// String renders the body as JSON for handlers that take a fixed message, like http.TimeoutHandler.
func (b ErrorBody) String() string {
	data, err := json.Marshal(b)
	if err != nil {
		return `{"error":"` + b.Error + `"}`
	}
	return string(data)
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ReadJSON decodes a request body of at most 1 MiB into dst and rejects unknown fields.
// An empty body yields io.EOF.
func ReadJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func ErrorResponse(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, NewErrorBody(status, "", message))
}

func CodedErrorResponse(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, NewErrorBody(status, code, message))
}

func SuccessResponse(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}
