package simulation

import (
	"fmt"
	"math"
	"strings"
)

const c_powerTolerance = 1e-6

// PowerDistribution assigns normalized discovery weights to n participants.
type PowerDistribution interface {
	Weights(n int) ([]float64, error)
	String() string
}

// EqualPower splits power evenly.
type EqualPower struct{}

func (EqualPower) Weights(n int) ([]float64, error) {
	if n <= 0 {
		return nil, invalidConfig("no participants")
	}
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	return weights, nil
}

func (EqualPower) String() string {
	return "equal"
}

// SetParticipantPower gives ID a fixed share and splits the rest evenly.
type SetParticipantPower struct {
	ID    ParticipantID
	Value float64
}

func (s SetParticipantPower) Weights(n int) ([]float64, error) {
	if n <= 0 {
		return nil, invalidConfig("no participants")
	}
	if s.ID < 0 || int(s.ID) >= n {
		return nil, invalidConfig("participant %d out of range for %d participants", s.ID, n)
	}
	if s.Value < 0 || s.Value > 1 {
		return nil, invalidConfig("power %g outside [0, 1]", s.Value)
	}
	weights := make([]float64, n)
	for i := range weights {
		if ParticipantID(i) == s.ID {
			weights[i] = s.Value
			continue
		}
		weights[i] = (1 - s.Value) / float64(n-1)
	}
	return weights, validateWeights(weights)
}

func (s SetParticipantPower) String() string {
	return fmt.Sprintf("%d=%g", s.ID, s.Value)
}

// PowerValues lists every weight explicitly.
type PowerValues []float64

func (p PowerValues) Weights(n int) ([]float64, error) {
	if len(p) != n {
		return nil, invalidConfig("%d power values for %d participants", len(p), n)
	}
	weights := append([]float64(nil), p...)
	return weights, validateWeights(weights)
}

func (p PowerValues) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func validateWeights(weights []float64) error {
	var sum float64
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return invalidConfig("power %g of participant %d outside [0, 1]", w, i)
		}
		sum += w
	}
	if math.Abs(sum-1) > c_powerTolerance {
		return invalidConfig("power values sum to %g", sum)
	}
	return nil
}
