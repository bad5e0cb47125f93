// Package reading defines the sensor reading value type shared by the
// store, producer, window engine, and renderers.
package reading

import "time"

// Reading is one sensor observation: a timestamp plus the fixed
// temperature/humidity/pressure field triple.
//
// ID and (when absent) Timestamp are assigned by the store at insert.
// Readings are immutable once stored; there is no update or delete.
type Reading struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
}

// Fields returns the reading's measured values keyed by field name,
// in the fixed schema order.
func (r Reading) Fields() []Field {
	return []Field{
		{Name: "temperature", Label: "Temperature", Unit: "°C", Value: r.Temperature},
		{Name: "humidity", Label: "Humidity", Unit: "%", Value: r.Humidity},
		{Name: "pressure", Label: "Pressure", Unit: "hPa", Value: r.Pressure},
	}
}

// Field is one named measurement within a reading.
type Field struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// References are the nominal field values the dashboard compares the
// latest reading against (delta display on the gauges).
var References = Reading{
	Temperature: 20,
	Humidity:    50,
	Pressure:    1013,
}
