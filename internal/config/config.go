// Package config loads simulation and sweep settings with viper. Values come
// from an optional YAML, TOML or JSON file, MININGSIM_ environment variables
// and bound command line flags, in increasing order of precedence.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/shreekarashastry/miningsim/internal/logging"
	"github.com/shreekarashastry/miningsim/simulation"
)

const EnvPrefix = "MININGSIM"

// Power modes.
const (
	PowerEqual  = "equal"
	PowerSet    = "set"
	PowerValues = "values"
)

// File is the decoded configuration.
type File struct {
	Rounds       uint64                     `mapstructure:"rounds"`
	Seed         int64                      `mapstructure:"seed"`
	Randomness   string                     `mapstructure:"randomness"`
	Sequence     []simulation.ParticipantID `mapstructure:"sequence"`
	HeadRule     string                     `mapstructure:"head_rule"`
	Prune        Prune                      `mapstructure:"prune"`
	Participants []Participant              `mapstructure:"participants"`
	Power        Power                      `mapstructure:"power"`
	Sweep        Sweep                      `mapstructure:"sweep"`
	Log          logging.Options            `mapstructure:"log"`
	Metrics      Metrics                    `mapstructure:"metrics"`
}

type Prune struct {
	Interval uint64 `mapstructure:"interval"`
	Window   uint64 `mapstructure:"window"`
}

// Participant is a strategy repeated Count times. A zero Count means one.
type Participant struct {
	simulation.StrategySpec `mapstructure:",squash"`
	Count                   int `mapstructure:"count"`
}

// Power selects a simulation.PowerDistribution.
type Power struct {
	Mode        string                   `mapstructure:"mode"`
	Participant simulation.ParticipantID `mapstructure:"participant"`
	Value       float64                  `mapstructure:"value"`
	Values      []float64                `mapstructure:"values"`
}

// Sweep configures a group run. An empty Powers list sweeps the single power
// distribution of the file.
type Sweep struct {
	Powers      []Power `mapstructure:"powers"`
	Repeat      int     `mapstructure:"repeat"`
	Concurrency int     `mapstructure:"concurrency"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"`
}

// NewViper returns a viper instance carrying the defaults and the environment
// binding.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	def := logging.DefaultOptions()
	v.SetDefault("rounds", 10_000)
	v.SetDefault("seed", 0)
	v.SetDefault("randomness", string(simulation.SeededRandomness))
	v.SetDefault("head_rule", simulation.HeadEarliestPublished.String())
	v.SetDefault("prune.interval", 0)
	v.SetDefault("prune.window", 0)
	v.SetDefault("power.mode", PowerEqual)
	v.SetDefault("sweep.repeat", 1)
	v.SetDefault("sweep.concurrency", 0)
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.format", def.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", def.MaxSize)
	v.SetDefault("log.max_backups", def.MaxBackups)
	v.SetDefault("log.max_age", def.MaxAge)
	v.SetDefault("metrics.addr", "")
}

// Load reads path, when given, into v and decodes the result.
func Load(v *viper.Viper, path string) (*File, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	return Decode(v)
}

// Decode unmarshals whatever v holds.
func Decode(v *viper.Viper) (*File, error) {
	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &f, nil
}

// Distribution converts p.
func (p Power) Distribution() (simulation.PowerDistribution, error) {
	switch strings.ToLower(p.Mode) {
	case "", PowerEqual:
		return simulation.EqualPower{}, nil
	case PowerSet:
		return simulation.SetParticipantPower{ID: p.Participant, Value: p.Value}, nil
	case PowerValues:
		return simulation.PowerValues(append([]float64(nil), p.Values...)), nil
	default:
		return nil, errors.Wrapf(simulation.ErrInvalidConfiguration, "unknown power mode %q", p.Mode)
	}
}

// Simulation converts f into a validated simulation.Config.
func (f *File) Simulation() (simulation.Config, error) {
	rule, err := simulation.ParseHeadRule(f.HeadRule)
	if err != nil {
		return simulation.Config{}, err
	}
	power, err := f.Power.Distribution()
	if err != nil {
		return simulation.Config{}, err
	}

	cfg := simulation.Config{
		Power:         power,
		Rounds:        f.Rounds,
		Seed:          f.Seed,
		Randomness:    simulation.RandomnessMode(strings.ToLower(f.Randomness)),
		Sequence:      append([]simulation.ParticipantID(nil), f.Sequence...),
		HeadRule:      rule,
		PruneInterval: f.Prune.Interval,
		PruneWindow:   f.Prune.Window,
	}
	for _, p := range f.Participants {
		count := p.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			cfg.Participants = append(cfg.Participants, simulation.ParticipantConfig{Strategy: p.StrategySpec})
		}
	}
	if err := cfg.Validate(); err != nil {
		return simulation.Config{}, err
	}
	return cfg, nil
}

// Group converts f into a group run over the sweep's power distributions.
func (f *File) Group() (*simulation.Group, error) {
	base, err := f.Simulation()
	if err != nil {
		return nil, err
	}
	g := &simulation.Group{
		Base:        base,
		Repeat:      f.Sweep.Repeat,
		Concurrency: f.Sweep.Concurrency,
	}
	for i, p := range f.Sweep.Powers {
		dist, err := p.Distribution()
		if err != nil {
			return nil, errors.WithMessagef(err, "sweep power %d", i)
		}
		g.Powers = append(g.Powers, dist)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
