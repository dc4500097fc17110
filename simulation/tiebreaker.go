package simulation

// Canonical follows the canonical head chosen by the tree's HeadRule.
type Canonical struct{}

func (Canonical) SelectHeads(v View) []BlockID {
	return []BlockID{v.CanonicalHead()}
}

// EarliestPublished mines on the first public tip to have been published.
type EarliestPublished struct{}

func (EarliestPublished) SelectHeads(v View) []BlockID {
	return v.PublicTips()[:1]
}

// FavorParticipant mines on the earliest published public tip owned by ID and
// falls back to the canonical head.
type FavorParticipant struct {
	ID ParticipantID
}

func (f FavorParticipant) SelectHeads(v View) []BlockID {
	for _, id := range v.PublicTips() {
		if b, _ := v.Block(id); b.Owner() == f.ID {
			return []BlockID{id}
		}
	}
	return []BlockID{v.CanonicalHead()}
}

// FavorParticipantProb breaks a tie between a tip owned by ID and any other
// tip in favor of ID with probability Gamma.
type FavorParticipantProb struct {
	ID    ParticipantID
	Gamma float64
}

func (f FavorParticipantProb) SelectHeads(v View) []BlockID {
	favored, other := BlockID(0), BlockID(0)
	var hasFavored, hasOther bool
	for _, id := range v.PublicTips() {
		b, _ := v.Block(id)
		switch {
		case b.Owner() == f.ID && !hasFavored:
			favored, hasFavored = id, true
		case b.Owner() != f.ID && !hasOther:
			other, hasOther = id, true
		}
	}
	switch {
	case !hasFavored:
		return []BlockID{other}
	case !hasOther:
		return []BlockID{favored}
	case v.Rand().Float64() < f.Gamma:
		return []BlockID{favored}
	default:
		return []BlockID{other}
	}
}

// FavorParticipantFork mines on the deepest public block owned by ID found
// within Depth of the maximum public depth, even if it is not a tip.
type FavorParticipantFork struct {
	ID    ParticipantID
	Depth uint64
}

func (f FavorParticipantFork) SelectHeads(v View) []BlockID {
	top := v.PublicDepth()
	var low uint64
	if top > f.Depth {
		low = top - f.Depth
	}
	for d := top + 1; d > low; d-- {
		for _, id := range v.PublicAt(d - 1) {
			if b, _ := v.Block(id); b.Owner() == f.ID {
				return []BlockID{id}
			}
		}
	}
	return []BlockID{v.CanonicalHead()}
}

// LiveTips mines on every public leaf within Window of the maximum public
// depth.
type LiveTips struct {
	Window uint64
}

func (l LiveTips) SelectHeads(v View) []BlockID {
	return v.LiveTips(l.Window)
}

// Forking mines on the parent of Base's choice with probability P.
type Forking struct {
	P    float64
	Base HeadSelector
}

func (f Forking) SelectHeads(v View) []BlockID {
	heads := f.Base.SelectHeads(v)
	if v.Rand().Float64() >= f.P {
		return heads
	}
	forked := make([]BlockID, len(heads))
	for i, id := range heads {
		b, _ := v.Block(id)
		forked[i] = b.Parent()
	}
	return forked
}
