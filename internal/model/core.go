package model

import "encoding/json"

// Envelope is the canonical wrapper published to the raw telemetry topic.
// Data carries the polled body verbatim: parsed JSON when the source
// returned valid JSON, otherwise the raw text re-encoded as a JSON string.
type Envelope struct {
	Source      string          `json:"source"`
	PolledAt    string          `json:"polled_at"`
	APIURL      string          `json:"api_url"`
	TruckNumber *int            `json:"truck_number,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// DerivedEvent is the filtered record republished to the EDA topic.
type DerivedEvent struct {
	EventType       string `json:"event_type"`
	Timestamp       string `json:"timestamp"`
	SourceTopic     string `json:"source_topic"`
	TruckID         string `json:"truck_id"`
	FirmwareVersion string `json:"firmware_version"`
}

// EventTypeFiltered is the only event type this stage emits.
const EventTypeFiltered = "truck_telemetry_filtered"

// Identification is the projection located inside an arbitrary payload.
type Identification struct {
	TruckID         string `json:"truck_id"`
	FirmwareVersion string `json:"firmware_version"`
}
