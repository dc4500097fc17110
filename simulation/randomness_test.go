package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(t *testing.T, src RandomnessSource, weights []float64, n int) []ParticipantID {
	t.Helper()
	out := make([]ParticipantID, n)
	for i := range out {
		id, err := src.NextDiscoverer(weights)
		require.NoError(t, err)
		out[i] = id
	}
	return out
}

func TestSourcesAreDeterministic(t *testing.T) {
	weights := []float64{0.25, 0.25, 0.25, 0.25}
	tests := []struct {
		name string
		new  func(int64) *SeededSource
	}{
		{"seeded", NewSeededSource},
		{"hash", NewHashSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := draw(t, tt.new(11), weights, 200)
			b := draw(t, tt.new(11), weights, 200)
			c := draw(t, tt.new(12), weights, 200)
			assert.Equal(t, a, b)
			assert.NotEqual(t, a, c)
		})
	}
}

func TestSourcesFollowWeights(t *testing.T) {
	weights := []float64{0.1, 0.3, 0.6}
	const n = 100_000
	for name, src := range map[string]RandomnessSource{
		"seeded": NewSeededSource(1),
		"hash":   NewHashSource(1),
	} {
		t.Run(name, func(t *testing.T) {
			counts := make([]int, len(weights))
			for _, id := range draw(t, src, weights, n) {
				counts[id]++
			}
			for i, w := range weights {
				assert.InDelta(t, w, float64(counts[i])/n, 0.01, "participant %d", i)
			}
		})
	}
}

func TestZeroWeightIsNeverDrawn(t *testing.T) {
	weights := []float64{0.5, 0, 0.5}
	for _, id := range draw(t, NewSeededSource(5), weights, 10_000) {
		assert.NotEqual(t, ParticipantID(1), id)
	}

	_, err := NewSeededSource(5).NextDiscoverer([]float64{0, 0})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestWeightedDrawEdges(t *testing.T) {
	id, err := weightedDraw([]float64{0.5, 0.5, 0}, 0.9999999999999999)
	require.NoError(t, err)
	assert.Equal(t, ParticipantID(1), id)

	id, err = weightedDraw([]float64{0, 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, ParticipantID(1), id)
}

func TestExternalSource(t *testing.T) {
	weights := []float64{0.2, 0.3, 0.5}
	src := NewExternalSource([]ParticipantID{2, 0, 1})
	assert.Equal(t, []ParticipantID{2, 0, 1}, draw(t, src, weights, 3))
	assert.Equal(t, 0, src.Remaining())

	_, err := src.NextDiscoverer(weights)
	assert.ErrorIs(t, err, ErrExhaustedRandomness)

	_, err = NewExternalSource([]ParticipantID{3}).NextDiscoverer(weights)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestHashPRNGReseed(t *testing.T) {
	p := NewHashPRNG(9)
	first := make([]uint64, 10)
	for i := range first {
		first[i] = p.Uint64()
	}
	p.Seed(9)
	for i := range first {
		assert.Equal(t, first[i], p.Uint64())
	}
	assert.GreaterOrEqual(t, p.Int63(), int64(0))
}

func TestDeriveSeed(t *testing.T) {
	assert.Equal(t, DeriveSeed(1, "trial", "0"), DeriveSeed(1, "trial", "0"))
	assert.NotEqual(t, DeriveSeed(1, "trial", "0"), DeriveSeed(1, "trial", "1"))
	assert.NotEqual(t, DeriveSeed(1, "trial", "0"), DeriveSeed(2, "trial", "0"))
	assert.NotEqual(t, DeriveSeed(1, "ab", "c"), DeriveSeed(1, "a", "bc"))
}
