package fulfillment

import (
	"net/http"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// Outcome is the normalized, hub-facing result of a sync operation.
// Operations never return errors; failures are folded into a 500 Outcome.
type Outcome struct {
	Status     int
	Message    string
	Orders     []fulfillment.HubOrderUpdate
	Shipments  []fulfillment.HubShipmentUpdate
	Parameters map[string]string
}

// IsSuccess returns true for 2xx outcomes
func (o Outcome) IsSuccess() bool {
	return o.Status >= http.StatusOK && o.Status < http.StatusMultipleChoices
}

func succeeded(message string) Outcome {
	return Outcome{Status: http.StatusOK, Message: message}
}

func failed(message string) Outcome {
	return Outcome{Status: http.StatusInternalServerError, Message: message}
}
