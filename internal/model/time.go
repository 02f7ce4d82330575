package model

import "time"

// TimeLayout is the wire timestamp format: ISO-8601 UTC with
// microsecond precision.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// UTCNow returns the current time formatted for the wire.
func UTCNow() string {
	return time.Now().UTC().Format(TimeLayout)
}
