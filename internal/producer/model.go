package producer

import (
	"math"
	"math/rand"

	"github.com/weatherdeck/weatherdeck/internal/reading"
)

// FieldModel draws one field as a Gaussian around Center.
type FieldModel struct {
	Center float64
	Stddev float64
}

func (m FieldModel) sample(rng *rand.Rand) float64 {
	v := rng.NormFloat64()*m.Stddev + m.Center
	// Two decimals, like a real sensor would report.
	return math.Round(v*100) / 100
}

// Model is the fixed synthetic sensor: independent per-field Gaussians,
// no drift, no cross-field correlation.
type Model struct {
	Temperature FieldModel
	Humidity    FieldModel
	Pressure    FieldModel
}

// DefaultModel matches the reference deployment: 20±5 °C, 50±10 %RH,
// 1013±20 hPa.
func DefaultModel() Model {
	return Model{
		Temperature: FieldModel{Center: 20, Stddev: 5},
		Humidity:    FieldModel{Center: 50, Stddev: 10},
		Pressure:    FieldModel{Center: 1013, Stddev: 20},
	}
}

// Reading draws one synthetic reading. The timestamp is left zero so the
// store stamps it at insert; the seeder overrides it with history.
func (m Model) Reading(rng *rand.Rand) reading.Reading {
	return reading.Reading{
		Temperature: m.Temperature.sample(rng),
		Humidity:    m.Humidity.sample(rng),
		Pressure:    m.Pressure.sample(rng),
	}
}
