package simulation

import (
	"context"
	"runtime"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Group runs the same configuration under several power distributions, each
// repeated Repeat times. Trials share nothing, so they run in parallel.
type Group struct {
	Base   Config
	Powers []PowerDistribution
	Repeat int
	// Concurrency caps the number of trials in flight. Zero means GOMAXPROCS.
	Concurrency int
	Logger      *logrus.Entry
	// OnTrial is called after each trial completes. Calls are serialized.
	OnTrial func(Trial)
	// Instrument, when set, is handed every engine before it runs. The
	// returned function is called once the run is over.
	Instrument func(*Engine) (done func())
}

// Trial is one run of a Group.
type Trial struct {
	PowerIndex int
	Power      PowerDistribution
	Repeat     int
	Seed       int64
	Result     *Result
}

func (g *Group) powers() []PowerDistribution {
	if len(g.Powers) == 0 {
		return []PowerDistribution{g.Base.power()}
	}
	return g.Powers
}

func (g *Group) repeat() int {
	if g.Repeat <= 0 {
		return 1
	}
	return g.Repeat
}

// Size is the number of trials RunAll executes.
func (g *Group) Size() int {
	return len(g.powers()) * g.repeat()
}

// Validate checks the base configuration under every power distribution.
func (g *Group) Validate() error {
	for i, p := range g.powers() {
		cfg := g.Base
		cfg.Power = p
		if err := cfg.Validate(); err != nil {
			return errors.WithMessagef(err, "power distribution %d", i)
		}
	}
	return nil
}

// TrialSeed derives the seed of one trial from the base seed.
func TrialSeed(base int64, powerIndex, repeat int) int64 {
	return DeriveSeed(base, "trial", strconv.Itoa(powerIndex), strconv.Itoa(repeat))
}

// RunAll executes every trial and returns them ordered by power distribution,
// then repetition, whatever the concurrency. The first failing trial cancels
// the rest.
func (g *Group) RunAll(ctx context.Context) ([]Trial, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	logger := g.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	limit := g.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	powers := g.powers()
	repeat := g.repeat()
	trials := make([]Trial, len(powers)*repeat)
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for pi, power := range powers {
		for r := 0; r < repeat; r++ {
			idx := pi*repeat + r
			trial := Trial{PowerIndex: pi, Power: power, Repeat: r, Seed: TrialSeed(g.Base.Seed, pi, r)}
			eg.Go(func() error {
				cfg := g.Base
				cfg.Power = trial.Power
				cfg.Seed = trial.Seed
				e, err := NewEngine(cfg, WithLogger(logger.WithFields(logrus.Fields{
					"power":  trial.Power.String(),
					"repeat": trial.Repeat,
				})))
				if err != nil {
					return err
				}
				if g.Instrument != nil {
					if done := g.Instrument(e); done != nil {
						defer done()
					}
				}
				res, err := e.Run(ctx)
				if err != nil {
					return errors.WithMessagef(err, "trial %d of power %v", trial.Repeat, trial.Power)
				}
				trial.Result = res
				trials[idx] = trial

				if g.OnTrial != nil {
					mu.Lock()
					g.OnTrial(trial)
					mu.Unlock()
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return trials, nil
}
