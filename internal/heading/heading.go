package heading

// Heading is a single gyro reading suitable for JSON and MQTT.
type Heading struct {
	Source string `json:"source"` // sensor name, e.g. "gyro0"

	AngleDeg float64 `json:"angle_deg"` // continuous integrated angle, not wrapped to [0,360)
	RateDeg  float64 `json:"rate_dps"`  // instantaneous rotation rate in °/s

	Time string `json:"time"` // RFC3339
}

// Source is anything that can provide headings over time.
type Source interface {
	Next() (Heading, error)
}
