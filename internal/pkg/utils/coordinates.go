package utils

import (
	"encoding/json"
	"strings"

	"campusfinder/internal/domain"
)

// CoordinatesToJSON converts coordinates to the JSON text stored in the DB.
// Nil coordinates are stored as NULL.
func CoordinatesToJSON(c *domain.Coordinates) []byte {
	if c == nil {
		return nil
	}
	data, _ := json.Marshal(c)
	return data
}

// JSONToCoordinates parses stored JSON text back. Empty, null or malformed
// values read as absent.
func JSONToCoordinates(data []byte) *domain.Coordinates {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	var c domain.Coordinates
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil
	}
	return &c
}

// ParseCoordinates parses the JSON text clients send in form fields.
func ParseCoordinates(raw string) (*domain.Coordinates, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var c domain.Coordinates
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err
	}
	return &c, nil
}
