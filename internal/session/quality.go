package session

// Quality describes link health derived from the heartbeat round-trip time.
type Quality struct {
	Label string
	Color string
}

// QualityUnknown is reported before any round trip has been measured.
var QualityUnknown = Quality{Label: "unknown", Color: "grey"}

// Classify maps a heartbeat round-trip time in milliseconds to a Quality.
// Thresholds are product-tuned behavior and must not be revised casually.
// Buckets close on their upper bound: exactly 20ms is still "excellent".
// Zero or negative samples (clock skew) are unclassifiable.
func Classify(ms float64) Quality {
	switch {
	case ms > 100:
		return Quality{Label: "very poor", Color: "red"}
	case ms > 50:
		return Quality{Label: "poor", Color: "orange"}
	case ms > 30:
		return Quality{Label: "average", Color: "yellow"}
	case ms > 20:
		return Quality{Label: "good", Color: "olive"}
	case ms > 0:
		return Quality{Label: "excellent", Color: "green"}
	default:
		return Quality{Label: "???", Color: "black"}
	}
}
