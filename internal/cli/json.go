package cli

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rileyhilliard/knock/internal/errors"
	"github.com/rileyhilliard/knock/pkg/probe"
)

// JSONEnvelope wraps command output in a consistent structure for machine
// parsing. All --json output uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeAuthFailed     = "SSH_AUTH_FAILED"
	ErrCodeHostKey        = "SSH_HOST_KEY"
	ErrCodeUnreachable    = "SSH_UNREACHABLE"
	ErrCodeProbeFailed    = "PROBE_FAILED"
	ErrCodeUnknown        = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code
// mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if kerr, ok := err.(*errors.Error); ok {
		return &JSONError{
			Code:       mapErrorCode(kerr.Code, kerr.Message),
			Message:    kerr.Message,
			Suggestion: kerr.Suggestion,
		}
	}

	if mismatch, ok := err.(*probe.KeyMismatchError); ok {
		return &JSONError{
			Code:       ErrCodeHostKey,
			Message:    mismatch.Error(),
			Suggestion: mismatch.Suggestion(),
		}
	}

	if netErr, ok := err.(*probe.NetError); ok {
		return &JSONError{
			Code:    ErrCodeUnreachable,
			Message: netErr.Error(),
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		if strings.Contains(strings.ToLower(message), "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrAuth:
		return ErrCodeAuthFailed
	case errors.ErrHostKey:
		return ErrCodeHostKey
	case errors.ErrNetwork:
		return ErrCodeUnreachable
	case errors.ErrProbe:
		return ErrCodeProbeFailed
	}
	return ErrCodeUnknown
}
