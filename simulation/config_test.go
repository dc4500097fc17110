package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerDistributions(t *testing.T) {
	tests := []struct {
		name string
		dist PowerDistribution
		n    int
		want []float64
	}{
		{"equal", EqualPower{}, 4, []float64{0.25, 0.25, 0.25, 0.25}},
		{"set participant", SetParticipantPower{ID: 0, Value: 0.4}, 4, []float64{0.4, 0.2, 0.2, 0.2}},
		{"set last participant", SetParticipantPower{ID: 2, Value: 0.5}, 3, []float64{0.25, 0.25, 0.5}},
		{"single participant", SetParticipantPower{ID: 0, Value: 1}, 1, []float64{1}},
		{"values", PowerValues{0.1, 0.2, 0.7}, 3, []float64{0.1, 0.2, 0.7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.dist.Weights(tt.n)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestPowerDistributionErrors(t *testing.T) {
	tests := []struct {
		name string
		dist PowerDistribution
		n    int
	}{
		{"no participants", EqualPower{}, 0},
		{"value above one", SetParticipantPower{ID: 0, Value: 1.5}, 2},
		{"negative value", SetParticipantPower{ID: 0, Value: -0.1}, 2},
		{"participant out of range", SetParticipantPower{ID: 3, Value: 0.5}, 2},
		{"single participant below one", SetParticipantPower{ID: 0, Value: 0.5}, 1},
		{"sum below one", PowerValues{0.3, 0.3}, 2},
		{"wrong count", PowerValues{0.5, 0.5}, 3},
		{"negative entry", PowerValues{1.2, -0.2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.dist.Weights(tt.n)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestPowerValuesToleratesRounding(t *testing.T) {
	_, err := PowerValues{0.1, 0.2, 0.3, 0.4 + 5e-7}.Weights(4)
	assert.NoError(t, err)
	assert.Equal(t, "[0.1 0.2]", PowerValues{0.1, 0.2}.String())
	assert.Equal(t, "0=0.4", SetParticipantPower{ID: 0, Value: 0.4}.String())
}

func TestBuilderValidation(t *testing.T) {
	valid := func() *Builder {
		return NewBuilder().Participants(2, HonestSpec()).Rounds(10)
	}
	tests := []struct {
		name  string
		build func() *Builder
	}{
		{"no participants", func() *Builder { return NewBuilder().Rounds(10) }},
		{"zero rounds", func() *Builder { return valid().Rounds(0) }},
		{"weights do not sum to one", func() *Builder { return valid().Power(PowerValues{0.5, 0.4}) }},
		{"unknown strategy", func() *Builder { return valid().Participant(StrategySpec{Kind: "miner"}) }},
		{"n-deficit without N", func() *Builder { return valid().Participant(NDeficitSpec(0)) }},
		{"negative threshold", func() *Builder { return valid().Participant(SelfishSpec(-1)) }},
		{"fork probability", func() *Builder { return valid().Participant(HonestForkingSpec(2)) }},
		{"gamma", func() *Builder {
			return valid().Participant(StrategySpec{Kind: KindHonest, TieBreaker: TieBreakerSpec{Rule: TieFavorProb, Gamma: 1.1}})
		}},
		{"unknown tie breaker", func() *Builder {
			return valid().Participant(StrategySpec{Kind: KindHonest, TieBreaker: TieBreakerSpec{Rule: "coin"}})
		}},
		{"empty external sequence", func() *Builder { return valid().ExternalRandomness() }},
		{"external id out of range", func() *Builder { return valid().ExternalRandomness(0, 2) }},
		{"unknown head rule", func() *Builder { return valid().HeadRule(HeadRule(9)) }},
		{"nil factory result", func() *Builder { return valid().Custom(func() Strategy { return nil }) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.build().Build()
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, e)
		})
	}

	e, err := valid().Build()
	require.NoError(t, err)
	assert.Equal(t, Idle, e.State())
}

func TestBuilderUnknownRandomnessMode(t *testing.T) {
	b := NewBuilder().Participant(HonestSpec()).Rounds(1)
	cfg := b.Config()
	cfg.Randomness = "dice"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfiguration)
}

func TestStrategySpecNames(t *testing.T) {
	tests := []struct {
		spec StrategySpec
		want string
	}{
		{HonestSpec(), "Honest"},
		{HonestForkingSpec(0.25), "HonestForking(0.25)"},
		{SelfishSpec(0), "Selfish(2)"},
		{SelfishSpec(3), "Selfish(3)"},
		{NDeficitSpec(2), "2-Deficit"},
		{NothingAtStakeSpec(1), "NothingAtStake(1)"},
		{NothingAtStakeSpec(0), "NothingAtStake(1)"},
		{StrategySpec{Kind: KindNothingAtStake}, "NothingAtStake(1)"},
		{NothingAtStakeSpec(3), "NothingAtStake(3)"},
		{NoopSpec(), "Noop"},
		{StrategySpec{Kind: "SELFISH"}, "Selfish(2)"},
	}
	for _, tt := range tests {
		s, err := tt.spec.New()
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.Name())
	}
}

func TestBuilderConfigIsACopy(t *testing.T) {
	b := NewBuilder().Participant(HonestSpec()).Rounds(5)
	cfg := b.Config()
	b.Participant(SelfishSpec(2))
	assert.Len(t, cfg.Participants, 1)
	assert.Len(t, b.Config().Participants, 2)
}
