package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertNotification is the message format for forecast alerts
type AlertNotification struct {
	Type             string    `json:"type"` // ALERT_TRIGGERED, ALERT_UPDATED, ALERT_CLEARED
	AlertID          string    `json:"alert_id"`
	RunID            string    `json:"run_id"`
	HorizonHours     int       `json:"horizon_hours"`
	Target           time.Time `json:"target"`
	AQI              float64   `json:"aqi"`
	Severity         string    `json:"severity"`
	PreviousSeverity string    `json:"previous_severity,omitempty"`
	Color            string    `json:"color,omitempty"`
	RawDate          string    `json:"raw_date"`
	Since            time.Time `json:"since"`
}

const (
	AlertTypeTriggered = "ALERT_TRIGGERED"
	AlertTypeUpdated   = "ALERT_UPDATED"
	AlertTypeCleared   = "ALERT_CLEARED"
)

// Key returns the partition key, so every event of one horizon stays ordered
func (n *AlertNotification) Key() string {
	return fmt.Sprintf("horizon-%dh", n.HorizonHours)
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(alert *AlertNotification) ([]byte, error) {
	return json.Marshal(alert)
}

// DecodeAlertNotification decodes JSON to AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var alert AlertNotification
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, err
	}

	switch alert.Type {
	case AlertTypeTriggered, AlertTypeUpdated, AlertTypeCleared:
	default:
		return nil, fmt.Errorf("unknown alert type %q", alert.Type)
	}
	return &alert, nil
}
