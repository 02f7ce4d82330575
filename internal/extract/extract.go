// Package extract locates truck identification data inside arbitrary
// telemetry payloads. The same logical telemetry arrives wrapped
// differently depending on which upstream relay produced it, so the
// lookup tries a fixed, ordered list of known wrapping conventions.
package extract

import (
	"encoding/json"
	"fmt"

	"github.com/SimonDelord/project-proximity/internal/model"
)

// Sentinel is substituted for any identification field that cannot be
// resolved.
const Sentinel = "unknown"

type shapeMatcher func(payload map[string]any) (map[string]any, bool)

// matchers is ordered; the first convention that yields an
// identification object wins. New wrapping conventions are appended.
var matchers = []shapeMatcher{
	matchDirect,
	matchWrapped,
	matchLegacy,
}

// Direct: { "identification": { ... } }
func matchDirect(payload map[string]any) (map[string]any, bool) {
	return objectAt(payload, "identification")
}

// Wrapped: { "value": { "identification": { ... } } }
func matchWrapped(payload map[string]any) (map[string]any, bool) {
	value, ok := objectAt(payload, "value")
	if !ok {
		return nil, false
	}
	return objectAt(value, "identification")
}

// Legacy: { "data": { "identification": { ... } } }
func matchLegacy(payload map[string]any) (map[string]any, bool) {
	data, ok := objectAt(payload, "data")
	if !ok {
		return nil, false
	}
	return objectAt(data, "identification")
}

func objectAt(m map[string]any, key string) (map[string]any, bool) {
	obj, ok := m[key].(map[string]any)
	return obj, ok
}

// Locate returns the identification object found under any of the known
// wrapping conventions, or false when the payload matches none of them.
func Locate(payload map[string]any) (map[string]any, bool) {
	if payload == nil {
		return nil, false
	}
	for _, match := range matchers {
		if id, ok := match(payload); ok {
			return id, true
		}
	}
	return nil, false
}

// Identify projects the identification view out of a payload. Each
// field independently falls back to the sentinel when missing or null;
// non-string values are stringified.
func Identify(payload map[string]any) model.Identification {
	id := model.Identification{TruckID: Sentinel, FirmwareVersion: Sentinel}
	obj, ok := Locate(payload)
	if !ok {
		return id
	}
	id.TruckID = stringField(obj, "truck_id")
	id.FirmwareVersion = stringField(obj, "firmware_version")
	return id
}

// FromJSON parses raw bytes and identifies them. A body that is not a
// JSON object resolves to sentinels rather than an error.
func FromJSON(raw []byte) model.Identification {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.Identification{TruckID: Sentinel, FirmwareVersion: Sentinel}
	}
	return Identify(payload)
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return Sentinel
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
