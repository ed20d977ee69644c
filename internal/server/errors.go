package server

import (
	"encoding/json"
	"net/http"

	merrors "github.com/matzehuels/masonry/pkg/errors"
)

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func errorBody(code, msg string) errorResponse {
	return errorResponse{Error: errorDetail{Code: code, Message: msg}}
}

func notFound(format string, args ...any) error {
	return merrors.New(merrors.ErrCodeNotFound, format, args...)
}

// statusFor maps an error code to its HTTP status.
func statusFor(code merrors.Code) int {
	switch {
	case code.Invalid():
		return http.StatusBadRequest
	case code.NotFound():
		return http.StatusNotFound
	}
	switch code {
	case merrors.ErrCodeUnauthorized, merrors.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case merrors.ErrCodeForbidden:
		return http.StatusForbidden
	case merrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case merrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case merrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case merrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error document. Uncoded errors are
// reported as internal without their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := merrors.GetCode(err)
	msg := merrors.UserMessage(err)
	if code == "" {
		code = merrors.ErrCodeInternal
		msg = "internal error"
		loggerFrom(r).Error("request failed", "err", err)
	}
	body := errorBody(string(code), msg)
	body.Error.RequestID = requestIDFrom(r.Context())
	writeJSON(w, statusFor(code), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
