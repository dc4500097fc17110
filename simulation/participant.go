package simulation

import "math/rand"

type participant struct {
	id       ParticipantID
	power    float64
	strategy Strategy
	// tips are the blocks the participant extends when it discovers.
	tips []BlockID
	// selector, when set, retargets tips to the public head after each round.
	selector HeadSelector
	rng      *rand.Rand
}

func newParticipant(id ParticipantID, power float64, strategy Strategy, seed int64) *participant {
	return &participant{
		id:       id,
		power:    power,
		strategy: strategy,
		tips:     []BlockID{GenesisID},
		rng:      rand.New(NewHashPRNG(seed)),
	}
}

func (p *participant) setTips(tips []BlockID) {
	p.tips = append([]BlockID(nil), tips...)
}

// participantView implements View for one participant in one round.
type participantView struct {
	tree  *BlockTree
	p     *participant
	round uint64
	mined []BlockID
}

func (v *participantView) visible(id BlockID) (Block, bool) {
	b, ok := v.tree.Block(id)
	if !ok || (!b.public && b.owner != v.p.id) {
		return Block{}, false
	}
	return b, true
}

func (v *participantView) Self() ParticipantID {
	return v.p.id
}

func (v *participantView) Round() uint64 {
	return v.round
}

func (v *participantView) Mined() []BlockID {
	return append([]BlockID(nil), v.mined...)
}

func (v *participantView) Tips() []BlockID {
	return append([]BlockID(nil), v.p.tips...)
}

func (v *participantView) Block(id BlockID) (Block, bool) {
	return v.visible(id)
}

func (v *participantView) IsPublic(id BlockID) bool {
	return v.tree.IsPublic(id)
}

func (v *participantView) PublicDepth() uint64 {
	return v.tree.PublicDepth()
}

func (v *participantView) PublicTips() []BlockID {
	return v.tree.PublicTips()
}

func (v *participantView) PublicAt(depth uint64) []BlockID {
	return v.tree.PublicAt(depth)
}

func (v *participantView) CanonicalHead() BlockID {
	return v.tree.CanonicalHead()
}

func (v *participantView) LiveTips(window uint64) []BlockID {
	return v.tree.LiveTips(window)
}

func (v *participantView) PrivateChain() []BlockID {
	var chain []BlockID
	b, ok := v.visible(v.p.tips[0])
	for ok && !b.public && b.owner == v.p.id {
		chain = append(chain, b.id)
		b, ok = v.visible(b.parent)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (v *participantView) Lead() int64 {
	return int64(v.tree.Depth(v.p.tips[0])) - int64(v.tree.PublicDepth())
}

func (v *participantView) IsAncestor(a, b BlockID) bool {
	if _, ok := v.visible(a); !ok {
		return false
	}
	if _, ok := v.visible(b); !ok {
		return false
	}
	return v.tree.IsAncestor(a, b)
}

func (v *participantView) Rand() *rand.Rand {
	return v.p.rng
}
