package gps

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "2025-12-06"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
}

// Course over ground is undefined when the receiver is (near) stationary,
// so only report a heading reference above this speed.
const minHeadingSpeedKnots = 1.0

// HeadingReference returns the course over ground as an independent heading
// cross-check for the gyro, and whether it is usable for that purpose.
func (f Fix) HeadingReference() (float64, bool) {
	if f.Validity != "A" || f.SpeedKnots < minHeadingSpeedKnots {
		return 0, false
	}
	return f.CourseDeg, true
}
