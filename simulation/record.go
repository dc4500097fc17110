package simulation

// ActionRecord is one participant's decision in a round and what it did to the
// tree.
type ActionRecord struct {
	Participant ParticipantID
	Action      Action
	Targets     []BlockID
	// Published lists the blocks that became public because of the action.
	Published []BlockID
	// Lead is the participant's lead right after the action was applied.
	Lead int64
	// Err is set when the engine rejected the action.
	Err error
}

// RoundRecord is the append-only log entry for one round.
type RoundRecord struct {
	Round      uint64
	Discoverer ParticipantID
	Mined      []BlockID
	// Actions are in resolution order: the discoverer first, then everyone
	// else by ascending id.
	Actions   []ActionRecord
	Head      BlockID
	HeadDepth uint64
}

// Action returns the record of the given participant.
func (r RoundRecord) Action(id ParticipantID) (ActionRecord, bool) {
	for _, a := range r.Actions {
		if a.Participant == id {
			return a, true
		}
	}
	return ActionRecord{}, false
}

// Published returns every block published during the round.
func (r RoundRecord) Published() []BlockID {
	var ids []BlockID
	for _, a := range r.Actions {
		ids = append(ids, a.Published...)
	}
	return ids
}
