package simulation

import "math/rand"

// Action is what a participant does with its mining power for the rest of the
// round.
type Action uint

const (
	MineOnPublicHead Action = iota + 1
	MineOnPrivateTip
	PublishPrivateChain
	AdoptPublicChain
)

func (a Action) String() string {
	switch a {
	case MineOnPublicHead:
		return "mine-on-public-head"
	case MineOnPrivateTip:
		return "mine-on-private-tip"
	case PublishPrivateChain:
		return "publish-private-chain"
	case AdoptPublicChain:
		return "adopt-public-chain"
	default:
		return "invalid"
	}
}

// Decision is a strategy's answer for one round.
//
// For MineOnPublicHead and AdoptPublicChain, Targets (public blocks) or
// Selector picks the new tips. A Selector keeps following the public head:
// the engine re-applies it after every participant has acted. MineOnPrivateTip
// optionally retargets to visible Targets and drops the selector.
// PublishPrivateChain publishes Targets and their unpublished ancestors and
// leaves the tips alone; a non-nil Selector replaces the current one.
type Decision struct {
	Action   Action
	Targets  []BlockID
	Selector HeadSelector
}

func MineOnHead(sel HeadSelector) Decision {
	return Decision{Action: MineOnPublicHead, Selector: sel}
}

func MineOnTip(targets ...BlockID) Decision {
	return Decision{Action: MineOnPrivateTip, Targets: targets}
}

func Publish(ids ...BlockID) Decision {
	return Decision{Action: PublishPrivateChain, Targets: ids}
}

func Adopt(sel HeadSelector) Decision {
	return Decision{Action: AdoptPublicChain, Selector: sel}
}

// Then sets the selector the participant follows after publishing.
func (d Decision) Then(sel HeadSelector) Decision {
	d.Selector = sel
	return d
}

// Strategy decides a participant's action each round. Implementations keep
// their own private state and must never mutate the tree.
type Strategy interface {
	Name() string
	Decide(v View) Decision
}

// View is a participant's window onto the tree: every public block plus its
// own private blocks.
type View interface {
	Self() ParticipantID
	Round() uint64
	// Mined lists the blocks this participant discovered in the current round.
	Mined() []BlockID
	// Tips are the blocks the participant currently extends.
	Tips() []BlockID
	Block(id BlockID) (Block, bool)
	IsPublic(id BlockID) bool
	PublicDepth() uint64
	PublicTips() []BlockID
	PublicAt(depth uint64) []BlockID
	CanonicalHead() BlockID
	LiveTips(window uint64) []BlockID
	// PrivateChain lists the participant's unpublished blocks on the path to
	// its first tip, oldest first.
	PrivateChain() []BlockID
	// Lead is the depth of the first tip minus the maximum public depth.
	Lead() int64
	IsAncestor(a, b BlockID) bool
	Rand() *rand.Rand
}

// HeadSelector picks public blocks to mine on.
type HeadSelector interface {
	SelectHeads(v View) []BlockID
}
