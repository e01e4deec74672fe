// Package scale classifies EJI percentile ranks into concern bands.
package scale

import "ejiview/pkg/contracts/domain"

// Level names a concern band.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// Band is one row of the EJI scale: percentiles up to and including Max.
type Band struct {
	Level       Level   `json:"level"`
	Label       string  `json:"label"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Color       string  `json:"color"`
	Description string  `json:"description"`
}

var bands = []Band{
	{
		Level:       LevelLow,
		Label:       "Low Concern",
		Min:         0.00,
		Max:         0.25,
		Color:       "#4CAF50",
		Description: "Communities with lower cumulative environmental, social, and health burdens.",
	},
	{
		Level:       LevelModerate,
		Label:       "Moderate Concern",
		Min:         0.26,
		Max:         0.50,
		Color:       "#FFEB3B",
		Description: "Communities with some environmental or social stressors but not extreme.",
	},
	{
		Level:       LevelHigh,
		Label:       "High Concern",
		Min:         0.51,
		Max:         0.75,
		Color:       "#FF9800",
		Description: "Communities with elevated levels of cumulative burden and vulnerability.",
	},
	{
		Level:       LevelVeryHigh,
		Label:       "Very High Concern",
		Min:         0.76,
		Max:         1.00,
		Color:       "#F44336",
		Description: "Communities facing the highest combined burdens across indicators.",
	},
}

// Bands returns the reference table, lowest band first.
func Bands() []Band {
	return append([]Band(nil), bands...)
}

// Classify places v in its band. Missing values and values outside [0, 1]
// are unclassified. Values between two published ranges (0.255) fall into
// the lower band.
func Classify(v domain.Value) (Band, bool) {
	f, ok := v.Float64()
	if !ok || f < 0 || f > 1 {
		return Band{}, false
	}
	for _, b := range bands {
		if f <= b.Max {
			return b, true
		}
	}
	return Band{}, false
}

// ClassifyRecord bands every present metric of rec.
func ClassifyRecord(rec domain.EntityRecord) map[domain.Metric]Band {
	out := make(map[domain.Metric]Band, len(rec.Values))
	for m, v := range rec.Values {
		if b, ok := Classify(v); ok {
			out[m] = b
		}
	}
	return out
}
