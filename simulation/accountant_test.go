package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountCanonicalShares(t *testing.T) {
	tree := NewBlockTree(HeadEarliestPublished)
	b1, err := tree.Append(GenesisID, 0, 1)
	require.NoError(t, err)
	b2, err := tree.Append(b1, 1, 2)
	require.NoError(t, err)
	b3, err := tree.Append(GenesisID, 2, 3)
	require.NoError(t, err)
	_, err = tree.Publish(b2, 3)
	require.NoError(t, err)
	_, err = tree.Publish(b3, 3)
	require.NoError(t, err)

	records := []RoundRecord{
		{Round: 1, Discoverer: 0, Mined: []BlockID{b1}},
		{Round: 2, Discoverer: 1, Mined: []BlockID{b2}},
		{Round: 3, Discoverer: 2, Mined: []BlockID{b3}},
	}
	info := []ParticipantInfo{{"Selfish(2)", 0.4}, {"Honest", 0.3}, {"Honest", 0.3}}
	res := Account(tree, records, info)

	assert.Equal(t, uint64(3), res.Rounds)
	assert.Equal(t, b2, res.Head)
	assert.Equal(t, uint64(2), res.ChainLength)
	assert.Equal(t, uint64(3), res.BlocksMined)
	assert.Equal(t, uint64(3), res.BlocksPublished)
	assert.InDelta(t, 0.5, res.Revenue(0), 1e-12)
	assert.InDelta(t, 0.5, res.Revenue(1), 1e-12)
	assert.Zero(t, res.Revenue(2))
	assert.Zero(t, res.Revenue(7))
	assert.Equal(t, uint64(1), res.Participants[2].Mined)
	assert.Zero(t, res.Participants[2].Canonical)
	assert.Equal(t, "Selfish(2)", res.Participants[0].Strategy)
	assert.Len(t, res.Blocks, 4)
}

func TestAccountEmptyChain(t *testing.T) {
	tree := NewBlockTree(HeadEarliestPublished)
	_, err := tree.Append(GenesisID, 0, 1)
	require.NoError(t, err)

	res := Account(tree, []RoundRecord{{Round: 1, Discoverer: 0, Mined: []BlockID{1}}},
		[]ParticipantInfo{{"Noop", 0.5}, {"Honest", 0.5}})
	assert.Equal(t, GenesisID, res.Head)
	assert.Zero(t, res.ChainLength)
	for _, p := range res.Participants {
		assert.Zero(t, p.Revenue)
	}
	assert.Equal(t, uint64(1), res.Participants[0].Mined)
}

func TestFingerprintTracksRecords(t *testing.T) {
	tree := NewBlockTree(HeadEarliestPublished)
	info := []ParticipantInfo{{"Honest", 1}}
	records := []RoundRecord{{
		Round:      1,
		Discoverer: 0,
		Actions:    []ActionRecord{{Participant: 0, Action: MineOnPublicHead, Targets: []BlockID{GenesisID}}},
	}}

	a := Account(tree, records, info).Fingerprint()
	assert.Equal(t, a, Account(tree, records, info).Fingerprint())

	changed := []RoundRecord{records[0]}
	changed[0].Actions = []ActionRecord{{Participant: 0, Action: MineOnPrivateTip}}
	assert.NotEqual(t, a, Account(tree, changed, info).Fingerprint())

	changed[0].Actions = []ActionRecord{{Participant: 0, Action: MineOnPublicHead, Targets: []BlockID{GenesisID}, Err: ErrInvalidAction}}
	assert.NotEqual(t, a, Account(tree, changed, info).Fingerprint())
}

func TestIdealRevenue(t *testing.T) {
	assert.InDelta(t, 0.483720930, SelfishRevenue(0.4, 0), 1e-8)
	assert.InDelta(t, 1.0/3, SelfishRevenue(1.0/3, 0), 1e-12)
	assert.InDelta(t, 1, SelfishRevenue(0.5, 1), 1e-12)
	assert.Less(t, SelfishRevenue(0.2, 0), 0.2)

	assert.Zero(t, NothingAtStakeRevenue(0))
	assert.InDelta(t, 1, NothingAtStakeRevenue(0.5), 1e-12)
	assert.Greater(t, NothingAtStakeRevenue(0.3), 0.0)
}
