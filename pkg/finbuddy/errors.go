package finbuddy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError represents an error response from the FinBuddy API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface. The backend's message is shown as is;
// without one the status code is reported.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// IsNotFound returns true if the error is a 404 Not Found.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsBadRequest returns true if the backend rejected the input.
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// AsAPIError unwraps err into an *APIError if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// CheckResponse checks the API response for errors.
// If the response status code indicates an error, it parses
// the error body and returns an APIError. Otherwise, returns nil.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		// Body is not JSON, ignore parsing error
		return apiErr
	}

	// Spring puts the human readable text in "message" and the reason phrase in "error".
	if errResp.Message != "" {
		apiErr.Message = errResp.Message
	} else if errResp.Error != "" {
		apiErr.Message = errResp.Error
	}
	apiErr.Code = errResp.Code

	return apiErr
}

// DecodeJSON decodes a JSON response body into the given target.
func DecodeJSON(resp *http.Response, target any) error {
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// envelope is the {success, message, data} wrapper used by the wishlist and
// benchmark endpoints.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Count   int    `json:"count,omitempty"`
}

func (e envelope) err() error {
	if e.Success != nil && !*e.Success {
		msg := e.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return nil
}
