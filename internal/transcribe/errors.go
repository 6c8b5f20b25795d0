package transcribe

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable failure classification, independent of which provider
// produced the failure.
type ErrorCode string

const (
	CodeInvalidAPIKey ErrorCode = "INVALID_API_KEY"
	CodeRateLimited   ErrorCode = "RATE_LIMITED"
	CodeBadRequest    ErrorCode = "BAD_REQUEST"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeFileTooLarge  ErrorCode = "FILE_TOO_LARGE"
	CodeAPIError      ErrorCode = "API_ERROR"
	CodeNetworkError  ErrorCode = "NETWORK_ERROR"
)

// Error is the sole failure shape exposed past the pipeline boundary.
// Message is suitable for direct display; Details carries raw provider
// payloads for logging and is never shown to end users.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a transcription error with the given code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError coerces any pipeline failure into the structured shape. Errors that
// are not already an *Error become API_ERROR with the cause in Details.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeAPIError, Message: "Transcription failed.", Details: err.Error()}
}

// codeFromStatus maps a provider HTTP status to the stable taxonomy.
func codeFromStatus(status int) ErrorCode {
	switch status {
	case 401, 403:
		return CodeInvalidAPIKey
	case 429:
		return CodeRateLimited
	case 400, 422:
		return CodeBadRequest
	case 413:
		return CodeFileTooLarge
	case 415:
		return CodeInvalidFormat
	default:
		return CodeAPIError
	}
}

// messageForCode returns a displayable message for provider failures where the
// raw body is diagnostic rather than user-facing.
func messageForCode(code ErrorCode, provider string) string {
	switch code {
	case CodeInvalidAPIKey:
		return fmt.Sprintf("The %s API key was rejected. Check your credentials.", provider)
	case CodeRateLimited:
		return fmt.Sprintf("The %s API is rate limiting requests. Try again shortly.", provider)
	case CodeBadRequest:
		return "The audio could not be processed. It may be corrupt or in an unsupported encoding."
	case CodeInvalidFormat:
		return "The audio encoding is not supported by the transcription provider."
	case CodeFileTooLarge:
		return "The audio file exceeds the provider's size limit."
	case CodeNetworkError:
		return fmt.Sprintf("Could not reach the %s API.", provider)
	default:
		return fmt.Sprintf("The %s API returned an error.", provider)
	}
}
