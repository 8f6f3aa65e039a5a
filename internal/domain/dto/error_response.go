package dto

import "time"

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid import id"`
	ErrorDetails string    `json:"error_details,omitempty" example:"invalid UUID length: 3"`
	Timestamp    time.Time `json:"timestamp" example:"2024-03-01T10:00:00Z"`
}

// Error implements error so handlers can attach the response to the gin context.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse stamped with the current time.
// err is optional.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{Message: message, Timestamp: time.Now().UTC()}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}
