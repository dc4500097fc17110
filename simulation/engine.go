package simulation

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/dominant-strategies/go-quai/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// State of an Engine. An engine runs once.
type State uint32

const (
	Idle State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger replaces the default logger, which writes through the logrus
// standard logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSource overrides the randomness source selected by the config.
func WithSource(source RandomnessSource) Option {
	return func(e *Engine) {
		if source != nil {
			e.source = source
		}
	}
}

// Engine runs the mining game round by round. It owns the tree and the round
// log; strategies only ever see a View.
type Engine struct {
	cfg          Config
	tree         *BlockTree
	source       RandomnessSource
	participants []*participant
	weights      []float64
	records      []RoundRecord
	round        uint64
	state        atomic.Uint32

	roundFeed event.Feed
	logger    *logrus.Entry
}

// NewEngine validates cfg and prepares a run.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	weights, err := cfg.power().Weights(len(cfg.Participants))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		tree:    NewBlockTree(cfg.HeadRule),
		source:  cfg.newSource(),
		weights: weights,
		logger:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for i, pc := range cfg.Participants {
		strategy, err := pc.newStrategy()
		if err != nil {
			return nil, errors.WithMessagef(err, "participant %d", i)
		}
		seed := DeriveSeed(cfg.Seed, "participant", strconv.Itoa(i))
		e.participants = append(e.participants, newParticipant(ParticipantID(i), weights[i], strategy, seed))
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// Tree exposes the block tree for inspection. Callers must not mutate it while
// the engine runs.
func (e *Engine) Tree() *BlockTree {
	return e.tree
}

// Round returns the number of completed rounds.
func (e *Engine) Round() uint64 {
	return e.round
}

// Tips returns the blocks a participant currently extends.
func (e *Engine) Tips(id ParticipantID) []BlockID {
	if int(id) < 0 || int(id) >= len(e.participants) {
		return nil
	}
	return append([]BlockID(nil), e.participants[id].tips...)
}

// SubscribeRounds delivers every RoundRecord to ch as soon as the round
// completes. Delivery is synchronous: a slow subscriber slows the run down.
func (e *Engine) SubscribeRounds(ch chan<- RoundRecord) event.Subscription {
	return e.roundFeed.Subscribe(ch)
}

// Run executes rounds until the round limit. On an early stop it returns the
// result of the rounds completed so far together with the error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.state.CompareAndSwap(uint32(Idle), uint32(Running)) {
		return nil, errors.Wrapf(ErrEngineState, "engine is %v", e.State())
	}
	defer e.state.Store(uint32(Terminated))

	e.logger.WithFields(logrus.Fields{
		"rounds":       e.cfg.Rounds,
		"participants": len(e.participants),
		"randomness":   e.cfg.Randomness,
		"headRule":     e.cfg.HeadRule,
	}).Info("Starting simulation")

	var runErr error
	for e.round < e.cfg.Rounds {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := e.step(); err != nil {
			runErr = err
			break
		}
	}

	res := e.result()
	fields := logrus.Fields{
		"rounds":      res.Rounds,
		"chainLength": res.ChainLength,
		"published":   res.BlocksPublished,
	}
	if runErr != nil {
		e.logger.WithFields(fields).WithError(runErr).Error("Simulation stopped early")
		return res, runErr
	}
	e.logger.WithFields(fields).Info("Simulation finished")
	return res, nil
}

func (e *Engine) step() error {
	round := e.round + 1
	id, err := e.source.NextDiscoverer(e.weights)
	if err != nil {
		return errors.WithMessagef(err, "round %d", round)
	}
	discoverer := e.participants[id]

	mined := make([]BlockID, 0, len(discoverer.tips))
	for _, tip := range discoverer.tips {
		block, err := e.tree.Append(tip, discoverer.id, round)
		if err != nil {
			return errors.WithMessagef(err, "round %d", round)
		}
		mined = append(mined, block)
	}
	discoverer.setTips(mined)
	e.logger.WithFields(logrus.Fields{
		"round":       round,
		"participant": discoverer.id,
		"mined":       mined,
	}).Trace("Discovered block")

	rec := RoundRecord{
		Round:      round,
		Discoverer: discoverer.id,
		Mined:      mined,
		Actions:    make([]ActionRecord, 0, len(e.participants)),
	}
	rec.Actions = append(rec.Actions, e.act(discoverer, round, mined))
	for _, p := range e.participants {
		if p != discoverer {
			rec.Actions = append(rec.Actions, e.act(p, round, nil))
		}
	}
	e.settle(round)

	rec.Head = e.tree.CanonicalHead()
	rec.HeadDepth = e.tree.PublicDepth()
	e.records = append(e.records, rec)
	e.round = round
	e.roundFeed.Send(rec)

	if e.cfg.PruneInterval > 0 && round%e.cfg.PruneInterval == 0 {
		if removed := e.tree.PruneStale(e.liveTips(), e.cfg.PruneWindow); removed > 0 {
			e.logger.WithFields(logrus.Fields{
				"round":   round,
				"removed": removed,
				"blocks":  e.tree.Len(),
			}).Debug("Pruned stale blocks")
		}
	}
	return nil
}

func (e *Engine) view(p *participant, round uint64, mined []BlockID) *participantView {
	return &participantView{tree: e.tree, p: p, round: round, mined: mined}
}

// act asks one participant for its decision and applies it. A rejected
// decision leaves the tree and the participant untouched.
func (e *Engine) act(p *participant, round uint64, mined []BlockID) ActionRecord {
	v := e.view(p, round, mined)
	d := p.strategy.Decide(v)
	rec := ActionRecord{
		Participant: p.id,
		Action:      d.Action,
		Targets:     append([]BlockID(nil), d.Targets...),
	}
	published, err := e.apply(p, v, d)
	if err != nil {
		rec.Err = err
		e.logger.WithFields(logrus.Fields{
			"round":       round,
			"participant": p.id,
			"strategy":    p.strategy.Name(),
			"action":      d.Action,
		}).WithError(err).Warn("Rejected action")
	}
	if err == nil && (d.Action == MineOnPublicHead || d.Action == AdoptPublicChain) {
		rec.Targets = append([]BlockID(nil), p.tips...)
	}
	rec.Published = published
	rec.Lead = v.Lead()
	return rec
}

func (e *Engine) apply(p *participant, v *participantView, d Decision) ([]BlockID, error) {
	switch d.Action {
	case MineOnPublicHead, AdoptPublicChain:
		tips := d.Targets
		if len(tips) == 0 {
			if d.Selector == nil {
				return nil, invalidAction("%v needs targets or a selector", d.Action)
			}
			tips = d.Selector.SelectHeads(v)
		}
		if err := e.checkTips(v, tips, true); err != nil {
			return nil, err
		}
		p.setTips(tips)
		p.selector = d.Selector
		return nil, nil

	case MineOnPrivateTip:
		if len(d.Targets) > 0 {
			if err := e.checkTips(v, d.Targets, false); err != nil {
				return nil, err
			}
			p.setTips(d.Targets)
		}
		p.selector = nil
		return nil, nil

	case PublishPrivateChain:
		if len(d.Targets) == 0 {
			return nil, invalidAction("nothing to publish")
		}
		for _, id := range d.Targets {
			if err := e.checkPublishable(v, id); err != nil {
				return nil, err
			}
		}
		var published []BlockID
		for _, id := range d.Targets {
			ids, err := e.tree.Publish(id, v.round)
			if err != nil {
				return published, err
			}
			published = append(published, ids...)
		}
		if d.Selector != nil {
			p.selector = d.Selector
		}
		return published, nil
	}
	return nil, invalidAction("unknown action %d", uint(d.Action))
}

func (e *Engine) checkTips(v *participantView, tips []BlockID, public bool) error {
	if len(tips) == 0 {
		return invalidAction("no blocks to mine on")
	}
	for _, id := range tips {
		b, ok := v.visible(id)
		if !ok {
			return invalidAction("block %d is not visible to participant %d", id, v.p.id)
		}
		if public && !b.public {
			return invalidAction("block %d is not public", id)
		}
	}
	return nil
}

// checkPublishable requires every unpublished block on the path to id to be
// the participant's own.
func (e *Engine) checkPublishable(v *participantView, id BlockID) error {
	b, ok := v.visible(id)
	if !ok {
		return invalidAction("block %d is not visible to participant %d", id, v.p.id)
	}
	for !b.public {
		if b.owner != v.p.id {
			return invalidAction("block %d belongs to participant %d", b.id, b.owner)
		}
		b, _ = e.tree.Block(b.parent)
	}
	return nil
}

// settle moves every participant that follows a selector onto the selector's
// choice for the final public state of the round.
func (e *Engine) settle(round uint64) {
	for _, p := range e.participants {
		if p.selector == nil {
			continue
		}
		v := e.view(p, round, nil)
		tips := p.selector.SelectHeads(v)
		if err := e.checkTips(v, tips, true); err != nil {
			e.logger.WithFields(logrus.Fields{
				"round":       round,
				"participant": p.id,
			}).WithError(err).Warn("Selector returned unusable heads")
			continue
		}
		p.setTips(tips)
	}
}

func (e *Engine) liveTips() []BlockID {
	var live []BlockID
	for _, p := range e.participants {
		live = append(live, p.tips...)
	}
	return live
}

func (e *Engine) result() *Result {
	info := make([]ParticipantInfo, len(e.participants))
	for i, p := range e.participants {
		info[i] = ParticipantInfo{Strategy: p.strategy.Name(), Power: p.power}
	}
	return Account(e.tree, e.records, info)
}
