// Package envelope wraps raw polled telemetry into the canonical
// envelope published to the bus, and derives the partition key used to
// route messages for one truck onto one partition.
package envelope

import (
	"encoding/json"
	"strings"

	"github.com/SimonDelord/project-proximity/internal/extract"
	"github.com/SimonDelord/project-proximity/internal/model"
)

// Encode builds an Envelope around one polled response body. A body
// that is not valid JSON still produces an envelope: the raw text is
// preserved as a JSON string so malformed source output reaches
// downstream diagnosis instead of being dropped. truckNumber < 1 leaves
// the truck_number field unset.
func Encode(raw []byte, source, apiURL string, truckNumber int) model.Envelope {
	env := model.Envelope{
		Source:   source,
		PolledAt: model.UTCNow(),
		APIURL:   apiURL,
	}
	if truckNumber >= 1 {
		n := truckNumber
		env.TruckNumber = &n
	}
	if json.Valid(raw) {
		env.Data = json.RawMessage(raw)
	} else {
		s, _ := json.Marshal(string(raw))
		env.Data = json.RawMessage(s)
	}
	return env
}

// PartitionKey derives the bus key from a response body. Valid JSON is
// walked structurally for identification.truck_id under the known
// wrapping conventions; a body that fails to parse falls back to a
// literal substring scan, a deliberately degraded path that breaks on
// escaped quotes. An empty result means the message goes out keyless.
func PartitionKey(raw []byte) string {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return scanTruckID(string(raw))
	}
	payload, ok := parsed.(map[string]any)
	if !ok {
		return ""
	}
	obj, ok := extract.Locate(payload)
	if !ok {
		return ""
	}
	id, ok := obj["truck_id"].(string)
	if !ok {
		return ""
	}
	return id
}

const truckIDToken = `"truck_id":"`

func scanTruckID(body string) string {
	start := strings.Index(body, truckIDToken)
	if start < 0 {
		return ""
	}
	start += len(truckIDToken)
	end := strings.Index(body[start:], `"`)
	if end < 0 {
		return ""
	}
	return body[start : start+end]
}
