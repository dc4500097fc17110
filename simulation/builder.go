package simulation

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Builder assembles a Config fluently.
//
//	res, err := simulation.NewBuilder().
//		Participant(simulation.SelfishSpec(2)).
//		Participants(3, simulation.HonestSpec()).
//		Power(simulation.SetParticipantPower{ID: 0, Value: 0.4}).
//		Rounds(10_000).
//		Seed(7).
//		Run(ctx)
type Builder struct {
	cfg    Config
	logger *logrus.Entry
}

func NewBuilder() *Builder {
	return &Builder{cfg: Config{Power: EqualPower{}, Randomness: SeededRandomness}}
}

// Participant appends one participant running spec.
func (b *Builder) Participant(spec StrategySpec) *Builder {
	b.cfg.Participants = append(b.cfg.Participants, ParticipantConfig{Strategy: spec})
	return b
}

// Participants appends n participants running spec.
func (b *Builder) Participants(n int, spec StrategySpec) *Builder {
	for i := 0; i < n; i++ {
		b.Participant(spec)
	}
	return b
}

// Custom appends a participant whose strategy comes from factory.
func (b *Builder) Custom(factory func() Strategy) *Builder {
	b.cfg.Participants = append(b.cfg.Participants, ParticipantConfig{Factory: factory})
	return b
}

func (b *Builder) Power(p PowerDistribution) *Builder {
	b.cfg.Power = p
	return b
}

func (b *Builder) Rounds(n uint64) *Builder {
	b.cfg.Rounds = n
	return b
}

func (b *Builder) Seed(seed int64) *Builder {
	b.cfg.Seed = seed
	return b
}

// HashRandomness draws discoverers from the blake3 hash chain generator.
func (b *Builder) HashRandomness() *Builder {
	b.cfg.Randomness = HashRandomness
	return b
}

// ExternalRandomness replays seq as the discoverer of each round.
func (b *Builder) ExternalRandomness(seq ...ParticipantID) *Builder {
	b.cfg.Randomness = ExternalRandomness
	b.cfg.Sequence = append([]ParticipantID(nil), seq...)
	return b
}

func (b *Builder) HeadRule(rule HeadRule) *Builder {
	b.cfg.HeadRule = rule
	return b
}

// Prune enables pruning every interval rounds.
func (b *Builder) Prune(interval, window uint64) *Builder {
	b.cfg.PruneInterval = interval
	b.cfg.PruneWindow = window
	return b
}

func (b *Builder) Logger(logger *logrus.Entry) *Builder {
	b.logger = logger
	return b
}

// Config returns a copy of the configuration built so far.
func (b *Builder) Config() Config {
	cfg := b.cfg
	cfg.Participants = append([]ParticipantConfig(nil), b.cfg.Participants...)
	return cfg
}

func (b *Builder) Build() (*Engine, error) {
	return NewEngine(b.Config(), WithLogger(b.logger))
}

// Run builds an engine and runs it.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	e, err := b.Build()
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// Group turns the configuration into a sweep over powers, each repeated
// repeat times.
func (b *Builder) Group(powers []PowerDistribution, repeat int) *Group {
	return &Group{
		Base:   b.Config(),
		Powers: powers,
		Repeat: repeat,
		Logger: b.logger,
	}
}
