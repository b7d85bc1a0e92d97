package models

import (
	"time"
)

// LocationReport is a position update sent to the backend.
type LocationReport struct {
	RequestID string    `json:"request_id"`
	DeviceID  string    `json:"device_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// NearbyQuery asks the backend for users near a point.
type NearbyQuery struct {
	RequestID    string  `json:"request_id"`
	DeviceID     string  `json:"device_id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`
	Limit        int     `json:"limit,omitempty"`
}

// NearbyUser is one entry in a nearby-users result.
type NearbyUser struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distance_meters"`
	LastSeen       time.Time `json:"last_seen"`
}
