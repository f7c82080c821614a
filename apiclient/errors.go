package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Codes assigned by the client itself when the API gave none.
const (
	CodeSessionExpired = "session_expired"
	CodeNetworkError   = "network_error"
)

// APIError is a non-2xx answer from the API, or a transport failure (Status 0).
type APIError struct {
	Status  int
	Message string
	Code    string
	Details any
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// errorBody covers the error shapes the backend emits: {"message"},
// {"error","code"} and FastAPI's {"detail"}.
type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
	Detail  any    `json:"detail"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		apiErr.Code = eb.Code
		apiErr.Details = eb.Details
		errStr, _ := eb.Error.(string)
		detailStr, _ := eb.Detail.(string)
		switch {
		case eb.Message != "":
			apiErr.Message = eb.Message
		case errStr != "":
			apiErr.Message = errStr
		case detailStr != "":
			apiErr.Message = detailStr
		}
		if apiErr.Code == "" {
			apiErr.Code = errStr
		}
		if apiErr.Details == nil && eb.Detail != nil && detailStr == "" {
			apiErr.Details = eb.Detail
		}
	} else if len(body) > 0 {
		apiErr.Message = string(body)
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
