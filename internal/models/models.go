// Package models defines the core domain types for sockdo.
package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the ISO-8601 form used for createdAt on the wire.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Todo is a single entry in the backend's collection.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Timestamp is a UTC instant serialized with millisecond precision.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to milliseconds and converts it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimestampLayout))
}

// UnmarshalJSON implements json.Unmarshaler. Any RFC 3339 value is accepted.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// BackendHealth is the data payload of a HEALTH command.
type BackendHealth struct {
	Status  string  `json:"status"`
	Service string  `json:"service"`
	Todos   int     `json:"todos"`
	Uptime  float64 `json:"uptime"`
}

// GatewayHealth is the body returned by the gateway's /health endpoint.
type GatewayHealth struct {
	Status  string         `json:"status"`
	Service string         `json:"service"`
	Backend *BackendHealth `json:"backend,omitempty"`
	Error   string         `json:"error,omitempty"`
}
