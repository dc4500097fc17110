package simulation

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind names a built-in strategy.
type Kind string

const (
	KindHonest         Kind = "honest"
	KindHonestForking  Kind = "honest-forking"
	KindSelfish        Kind = "selfish"
	KindNDeficit       Kind = "n-deficit"
	KindNothingAtStake Kind = "nothing-at-stake"
	KindNoop           Kind = "noop"
)

// Tie breaker rules understood by TieBreakerSpec.
const (
	TieCanonical         = "canonical"
	TieEarliestPublished = "earliest-published"
	TieFavor             = "favor"
	TieFavorProb         = "favor-prob"
	TieFavorFork         = "favor-fork"
)

// TieBreakerSpec configures the head selector of an honest participant.
type TieBreakerSpec struct {
	Rule        string        `mapstructure:"rule"`
	Participant ParticipantID `mapstructure:"participant"`
	Gamma       float64       `mapstructure:"gamma"`
	Depth       uint64        `mapstructure:"depth"`
}

func (t TieBreakerSpec) selector() (HeadSelector, error) {
	switch strings.ToLower(t.Rule) {
	case "", TieCanonical:
		return Canonical{}, nil
	case TieEarliestPublished:
		return EarliestPublished{}, nil
	case TieFavor:
		return FavorParticipant{ID: t.Participant}, nil
	case TieFavorProb:
		if t.Gamma < 0 || t.Gamma > 1 {
			return nil, invalidConfig("gamma %g outside [0, 1]", t.Gamma)
		}
		return FavorParticipantProb{ID: t.Participant, Gamma: t.Gamma}, nil
	case TieFavorFork:
		return FavorParticipantFork{ID: t.Participant, Depth: t.Depth}, nil
	default:
		return nil, invalidConfig("unknown tie breaker %q", t.Rule)
	}
}

// StrategySpec describes a built-in strategy. Threshold is the publish
// threshold of selfish mining and N of n-deficit; Window applies to
// nothing-at-stake, where zero selects the default of one, and ForkProb to
// honest-forking.
type StrategySpec struct {
	Kind       Kind           `mapstructure:"kind"`
	Threshold  int            `mapstructure:"threshold"`
	Window     uint64         `mapstructure:"window"`
	ForkProb   float64        `mapstructure:"fork_prob"`
	TieBreaker TieBreakerSpec `mapstructure:"tie_breaker"`
}

func HonestSpec() StrategySpec {
	return StrategySpec{Kind: KindHonest}
}

func HonestForkingSpec(p float64) StrategySpec {
	return StrategySpec{Kind: KindHonestForking, ForkProb: p}
}

func SelfishSpec(threshold int) StrategySpec {
	return StrategySpec{Kind: KindSelfish, Threshold: threshold}
}

func NDeficitSpec(n int) StrategySpec {
	return StrategySpec{Kind: KindNDeficit, Threshold: n}
}

func NothingAtStakeSpec(window uint64) StrategySpec {
	return StrategySpec{Kind: KindNothingAtStake, Window: window}
}

func NoopSpec() StrategySpec {
	return StrategySpec{Kind: KindNoop}
}

// New builds a fresh strategy instance.
func (s StrategySpec) New() (Strategy, error) {
	switch Kind(strings.ToLower(string(s.Kind))) {
	case KindHonest:
		sel, err := s.TieBreaker.selector()
		if err != nil {
			return nil, err
		}
		return NewHonest(sel), nil
	case KindHonestForking:
		if s.ForkProb < 0 || s.ForkProb > 1 {
			return nil, invalidConfig("fork probability %g outside [0, 1]", s.ForkProb)
		}
		return NewHonestForking(s.ForkProb), nil
	case KindSelfish:
		if s.Threshold < 0 {
			return nil, invalidConfig("negative publish threshold %d", s.Threshold)
		}
		return NewSelfishMining(s.Threshold), nil
	case KindNDeficit:
		if s.Threshold < 1 {
			return nil, invalidConfig("n-deficit needs N >= 1, got %d", s.Threshold)
		}
		return NewNDeficit(s.Threshold), nil
	case KindNothingAtStake:
		window := s.Window
		if window == 0 {
			window = c_defaultLiveWindow
		}
		return NewNothingAtStake(window), nil
	case KindNoop:
		return Noop{}, nil
	default:
		return nil, invalidConfig("unknown strategy %q", s.Kind)
	}
}

// ParticipantConfig binds a strategy to a participant. Factory, when set, takes
// precedence over Strategy and is called once per run.
type ParticipantConfig struct {
	Strategy StrategySpec    `mapstructure:"strategy"`
	Factory  func() Strategy `mapstructure:"-"`
}

func (p ParticipantConfig) newStrategy() (Strategy, error) {
	if p.Factory != nil {
		s := p.Factory()
		if s == nil {
			return nil, invalidConfig("strategy factory returned nil")
		}
		return s, nil
	}
	return p.Strategy.New()
}

// RandomnessMode selects the RandomnessSource of a run.
type RandomnessMode string

const (
	SeededRandomness   RandomnessMode = "seeded"
	HashRandomness     RandomnessMode = "hash"
	ExternalRandomness RandomnessMode = "external"
)

// Config fully describes one run.
type Config struct {
	Participants []ParticipantConfig
	// Power defaults to EqualPower when nil.
	Power  PowerDistribution
	Rounds uint64
	Seed   int64
	// Randomness defaults to SeededRandomness. Sequence is only used in
	// external mode.
	Randomness RandomnessMode
	Sequence   []ParticipantID
	HeadRule   HeadRule
	// PruneInterval enables pruning every PruneInterval rounds. Public blocks
	// within PruneWindow of the maximum public depth survive pruning.
	PruneInterval uint64
	PruneWindow   uint64
}

func (c Config) power() PowerDistribution {
	if c.Power == nil {
		return EqualPower{}
	}
	return c.Power
}

// Validate checks everything that can be checked before a run starts.
func (c Config) Validate() error {
	n := len(c.Participants)
	if n == 0 {
		return invalidConfig("no participants")
	}
	if c.Rounds == 0 {
		return invalidConfig("round limit must be positive")
	}
	if _, err := c.power().Weights(n); err != nil {
		return err
	}
	for i, p := range c.Participants {
		if p.Factory != nil {
			continue
		}
		if _, err := p.Strategy.New(); err != nil {
			return errors.WithMessagef(err, "participant %d", i)
		}
	}
	if _, ok := headRuleNames[c.HeadRule]; !ok {
		return invalidConfig("unknown head rule %d", c.HeadRule)
	}
	switch c.Randomness {
	case "", SeededRandomness, HashRandomness:
	case ExternalRandomness:
		if len(c.Sequence) == 0 {
			return invalidConfig("external randomness needs a sequence")
		}
		for i, id := range c.Sequence {
			if id < 0 || int(id) >= n {
				return invalidConfig("sequence entry %d names participant %d of %d", i, id, n)
			}
		}
	default:
		return invalidConfig("unknown randomness mode %q", c.Randomness)
	}
	return nil
}

func (c Config) newSource() RandomnessSource {
	switch c.Randomness {
	case HashRandomness:
		return NewHashSource(c.Seed)
	case ExternalRandomness:
		return NewExternalSource(c.Sequence)
	default:
		return NewSeededSource(c.Seed)
	}
}
