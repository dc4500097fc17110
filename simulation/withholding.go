package simulation

import "fmt"

const c_defaultPublishThreshold = 2

// WithholdState is the phase a withholding strategy was in after its last
// decision.
type WithholdState uint

const (
	Following WithholdState = iota
	Withholding
	Racing
	Conceding
)

func (s WithholdState) String() string {
	switch s {
	case Following:
		return "following"
	case Withholding:
		return "withholding"
	case Racing:
		return "racing"
	case Conceding:
		return "conceding"
	default:
		return "unknown"
	}
}

// withholder holds the state machine shared by SelfishMining and NDeficit.
// A zero bound disables the lead and deficit limits.
type withholder struct {
	threshold int
	bound     int
	state     WithholdState
}

func (w *withholder) decide(v View) Decision {
	self := v.Self()
	favor := FavorParticipant{ID: self}

	// Mining on our own block while it is tied at the public tip wins the race.
	if mined := v.Mined(); len(mined) > 0 && wonRace(v, mined[0]) {
		w.state = Following
		return Publish(mined...)
	}

	priv := v.PrivateChain()
	lead := v.Lead()
	tip := v.Tips()[0]
	tipBlock, _ := v.Block(tip)

	if w.bound > 0 && lead > int64(w.bound) {
		w.state = Withholding
		return Publish(blockAtDepth(v, priv, tipBlock.Depth()-uint64(w.bound)))
	}

	if len(priv) == 0 {
		publicTips := v.PublicTips()
		switch {
		case lead == 0 && tipBlock.Owner() == self && len(publicTips) > 1:
			w.state = Racing
			return MineOnTip()
		case lead < 0 && w.keepsDeficit(v, tipBlock, lead):
			w.state = Conceding
			return MineOnTip()
		case lead < 0 && tipBlock.Owner() == self:
			w.state = Following
			return Adopt(favor)
		}
		w.state = Following
		return MineOnHead(favor)
	}

	first, _ := v.Block(priv[0])
	switch {
	case lead < 0:
		if w.keepsDeficit(v, tipBlock, lead) {
			w.state = Conceding
			return MineOnTip()
		}
		w.state = Following
		return Adopt(favor)
	case lead == 0:
		w.state = Racing
		return Publish(priv[len(priv)-1])
	case v.PublicDepth() >= first.Depth():
		w.state = Withholding
		if lead < int64(w.threshold) {
			return Publish(priv[len(priv)-1])
		}
		return Publish(blockAtDepth(v, priv, v.PublicDepth()))
	}
	w.state = Withholding
	return MineOnTip()
}

// keepsDeficit reports whether a participant behind the public chain keeps
// mining its own branch instead of adopting.
func (w *withholder) keepsDeficit(v View, tip Block, lead int64) bool {
	if w.bound == 0 || -lead > int64(w.bound) {
		return false
	}
	return tip.Owner() == v.Self() && !v.IsAncestor(tip.ID(), v.CanonicalHead())
}

func wonRace(v View, mined BlockID) bool {
	b, _ := v.Block(mined)
	parent, ok := v.Block(b.Parent())
	if !ok || !parent.Public() || parent.Owner() != v.Self() {
		return false
	}
	return parent.Depth() == v.PublicDepth() && len(v.PublicTips()) > 1
}

// blockAtDepth returns the private block at depth, or the last one when the
// chain does not reach it.
func blockAtDepth(v View, priv []BlockID, depth uint64) BlockID {
	for _, id := range priv {
		if b, _ := v.Block(id); b.Depth() == depth {
			return id
		}
	}
	return priv[len(priv)-1]
}

// SelfishMining withholds blocks and releases them to override or race the
// public chain. Once the public chain catches up with its first withheld
// block it publishes everything while its lead is below the threshold, and
// only enough blocks to match the public chain otherwise.
type SelfishMining struct {
	withholder
}

func NewSelfishMining(threshold int) *SelfishMining {
	if threshold < 1 {
		threshold = c_defaultPublishThreshold
	}
	return &SelfishMining{withholder{threshold: threshold}}
}

func (s *SelfishMining) Name() string {
	return fmt.Sprintf("Selfish(%d)", s.threshold)
}

func (s *SelfishMining) Decide(v View) Decision {
	return s.decide(v)
}

func (s *SelfishMining) State() WithholdState {
	return s.state
}

// NDeficit mines selfishly while keeping its lead at most N, and keeps
// extending its own branch while it trails the public chain by at most N
// blocks.
type NDeficit struct {
	withholder
}

// NewNDeficit panics if n is less than one; Config.Validate rejects that
// case before any strategy is built.
func NewNDeficit(n int) *NDeficit {
	if n < 1 {
		panic("n must be greater than 0")
	}
	return &NDeficit{withholder{threshold: c_defaultPublishThreshold, bound: n}}
}

func (d *NDeficit) Name() string {
	return fmt.Sprintf("%d-Deficit", d.bound)
}

func (d *NDeficit) Decide(v View) Decision {
	return d.decide(v)
}

func (d *NDeficit) State() WithholdState {
	return d.state
}

// N is the bound on both lead and deficit.
func (d *NDeficit) N() int {
	return d.bound
}
