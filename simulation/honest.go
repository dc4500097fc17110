package simulation

import "fmt"

// Honest publishes every block as soon as it is found and otherwise mines on
// the public head picked by its tie breaker.
type Honest struct {
	name       string
	tieBreaker HeadSelector
}

// NewHonest returns an honest strategy. A nil tie breaker follows the
// canonical head.
func NewHonest(tieBreaker HeadSelector) *Honest {
	if tieBreaker == nil {
		tieBreaker = Canonical{}
	}
	return &Honest{name: "Honest", tieBreaker: tieBreaker}
}

// NewHonestForking returns an honest strategy that mines on the parent of the
// canonical head with probability p.
func NewHonestForking(p float64) *Honest {
	return &Honest{
		name:       fmt.Sprintf("HonestForking(%g)", p),
		tieBreaker: Forking{P: p, Base: Canonical{}},
	}
}

func (h *Honest) Name() string {
	return h.name
}

func (h *Honest) Decide(v View) Decision {
	if mined := v.Mined(); len(mined) > 0 {
		return Publish(mined...).Then(h.tieBreaker)
	}
	return MineOnHead(h.tieBreaker)
}

// Noop mines a private chain forever and never publishes. It serves as a
// control that earns nothing.
type Noop struct{}

func (Noop) Name() string {
	return "Noop"
}

func (Noop) Decide(View) Decision {
	return MineOnTip()
}
