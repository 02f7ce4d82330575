package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONShapes(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantTruckID  string
		wantFirmware string
	}{
		{
			name:         "direct format",
			payload:      `{"identification":{"truck_id":"TRK-001","firmware_version":"2.4.1"},"location":{}}`,
			wantTruckID:  "TRK-001",
			wantFirmware: "2.4.1",
		},
		{
			name:         "wrapped format",
			payload:      `{"key":"k","value":{"identification":{"truck_id":"TRK-009","firmware_version":"3.1.2-build.3125"}}}`,
			wantTruckID:  "TRK-009",
			wantFirmware: "3.1.2-build.3125",
		},
		{
			name:         "legacy format",
			payload:      `{"data":{"identification":{"truck_id":"TRK-002","firmware_version":"1.0.0"}}}`,
			wantTruckID:  "TRK-002",
			wantFirmware: "1.0.0",
		},
		{
			name:         "firmware missing",
			payload:      `{"data":{"identification":{"truck_id":"TRK-001"}}}`,
			wantTruckID:  "TRK-001",
			wantFirmware: Sentinel,
		},
		{
			name:         "truck id null",
			payload:      `{"identification":{"truck_id":null,"firmware_version":"2.0"}}`,
			wantTruckID:  Sentinel,
			wantFirmware: "2.0",
		},
		{
			name:         "empty object",
			payload:      `{}`,
			wantTruckID:  Sentinel,
			wantFirmware: Sentinel,
		},
		{
			name:         "identification not an object",
			payload:      `{"identification":"TRK-001"}`,
			wantTruckID:  Sentinel,
			wantFirmware: Sentinel,
		},
		{
			name:         "value wrapper not an object",
			payload:      `{"value":[1,2,3]}`,
			wantTruckID:  Sentinel,
			wantFirmware: Sentinel,
		},
		{
			name:         "not json at all",
			payload:      `not json`,
			wantTruckID:  Sentinel,
			wantFirmware: Sentinel,
		},
		{
			name:         "json but not an object",
			payload:      `[{"identification":{"truck_id":"TRK-001"}}]`,
			wantTruckID:  Sentinel,
			wantFirmware: Sentinel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := FromJSON([]byte(tt.payload))
			assert.Equal(t, tt.wantTruckID, id.TruckID)
			assert.Equal(t, tt.wantFirmware, id.FirmwareVersion)
		})
	}
}

func TestFromJSONDirectWinsOverWrapped(t *testing.T) {
	payload := `{"identification":{"truck_id":"DIRECT"},"value":{"identification":{"truck_id":"WRAPPED"}},"data":{"identification":{"truck_id":"LEGACY"}}}`
	id := FromJSON([]byte(payload))
	assert.Equal(t, "DIRECT", id.TruckID)
}

func TestFromJSONWrappedWinsOverLegacy(t *testing.T) {
	payload := `{"value":{"identification":{"truck_id":"WRAPPED"}},"data":{"identification":{"truck_id":"LEGACY"}}}`
	id := FromJSON([]byte(payload))
	assert.Equal(t, "WRAPPED", id.TruckID)
}

func TestFromJSONStringifiesNonStringValues(t *testing.T) {
	payload := `{"identification":{"truck_id":42,"firmware_version":3.1}}`
	id := FromJSON([]byte(payload))
	assert.Equal(t, "42", id.TruckID)
	assert.Equal(t, "3.1", id.FirmwareVersion)
}

func TestFromJSONIdempotent(t *testing.T) {
	payload := []byte(`{"value":{"identification":{"truck_id":"TRK-009","firmware_version":"3.1.2-build.3125"}}}`)
	first := FromJSON(payload)
	second := FromJSON(payload)
	assert.Equal(t, first, second)
}

func TestLocateMissingPayload(t *testing.T) {
	_, ok := Locate(nil)
	require.False(t, ok)
}
