package model

import (
	"fmt"
	"time"
)

// Notification is the operator-facing message raised when a vehicle reports
// it reached its destination.
type Notification struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicleId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReachedMessage formats the text shown for a "reached" event.
func ReachedMessage(vehicleID string) string {
	return fmt.Sprintf("%s has reached its destination.", vehicleID)
}
