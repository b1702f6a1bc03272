package tools

import (
	"time"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

// SessionOutput is returned by every session tool
type SessionOutput struct {
	SessionID string      `json:"session_id"`
	UpdatedAt time.Time   `json:"updated_at"`
	View      wizard.View `json:"view"`
}

// Place is a point with its display address
type Place struct {
	Query    string    `json:"query,omitempty"`
	Location geo.Point `json:"location"`
	Address  string    `json:"address,omitempty"`
	Status   string    `json:"status,omitempty"`
}

// FareEstimateOutput is the result of estimate_fare
type FareEstimateOutput struct {
	From         Place   `json:"from"`
	To           Place   `json:"to"`
	DistanceKm   float64 `json:"distance_km"`
	DistanceText string  `json:"distance_text"`
	Passengers   int     `json:"passengers"`
	Fare         string  `json:"fare"`
	FareAmount   float64 `json:"fare_amount"`
	Currency     string  `json:"currency"`
}
