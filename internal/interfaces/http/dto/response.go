package dto

import (
	"time"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one failed field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Response wraps the non-hub endpoints
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	}
}

// SyncRecordListRequest binds the sync record listing query
type SyncRecordListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// SyncRecordResponse is one sync record in the listing
type SyncRecordResponse struct {
	ID            string    `json:"id"`
	Operation     string    `json:"operation"`
	Direction     string    `json:"direction"`
	OrderNumber   string    `json:"order_number,omitempty"`
	RemoteOrderID *int64    `json:"remote_order_id,omitempty"`
	Outcome       string    `json:"outcome"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSyncRecordResponses converts domain records for the listing
func NewSyncRecordResponses(records []fulfillment.SyncRecord) []SyncRecordResponse {
	out := make([]SyncRecordResponse, len(records))
	for i, r := range records {
		out[i] = SyncRecordResponse{
			ID:            r.ID.String(),
			Operation:     string(r.Operation),
			Direction:     string(r.Direction),
			OrderNumber:   r.OrderNumber,
			RemoteOrderID: r.RemoteOrderID,
			Outcome:       string(r.Outcome),
			Message:       r.Message,
			CreatedAt:     r.CreatedAt,
		}
	}
	return out
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}
