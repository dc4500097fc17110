package simulation

import "fmt"

const c_defaultLiveWindow = 1

// NothingAtStake publishes everything it finds and mines on every live public
// tip at once, which costs a staker nothing.
type NothingAtStake struct {
	window uint64
}

// NewNothingAtStake extends every public leaf within window of the maximum
// public depth. A zero window keeps to the leaves at the maximum depth.
func NewNothingAtStake(window uint64) *NothingAtStake {
	return &NothingAtStake{window: window}
}

func (n *NothingAtStake) Name() string {
	return fmt.Sprintf("NothingAtStake(%d)", n.window)
}

func (n *NothingAtStake) Decide(v View) Decision {
	sel := LiveTips{Window: n.window}
	if mined := v.Mined(); len(mined) > 0 {
		return Publish(mined...).Then(sel)
	}
	return MineOnHead(sel)
}
