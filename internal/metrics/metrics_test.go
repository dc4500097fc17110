package metrics

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreekarashastry/miningsim/simulation"
)

func TestObserve(t *testing.T) {
	c := New()
	c.Observe(simulation.RoundRecord{
		Round:      1,
		Discoverer: 0,
		Mined:      []simulation.BlockID{1},
		Actions: []simulation.ActionRecord{
			{Participant: 0, Action: simulation.MineOnPrivateTip},
			{Participant: 1, Action: simulation.MineOnPublicHead},
		},
	})
	c.Observe(simulation.RoundRecord{
		Round:      2,
		Discoverer: 1,
		Mined:      []simulation.BlockID{2},
		Actions: []simulation.ActionRecord{
			{Participant: 1, Action: simulation.PublishPrivateChain, Published: []simulation.BlockID{2}},
			{Participant: 0, Action: simulation.PublishPrivateChain, Published: []simulation.BlockID{1}},
			{Participant: 2, Action: simulation.PublishPrivateChain, Err: errors.New("nothing to publish")},
		},
		HeadDepth: 1,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rounds))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mined.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mined.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.published.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.invalid.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.depth))

	expected := `
# HELP miningsim_invalid_actions_total Actions rejected by the engine, by participant.
# TYPE miningsim_invalid_actions_total counter
miningsim_invalid_actions_total{participant="2"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "miningsim_invalid_actions_total"))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(New()))
	assert.Error(t, reg.Register(New()))
}

func TestAttach(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	const rounds = 500
	e, err := simulation.NewBuilder().
		Participant(simulation.SelfishSpec(2)).
		Participants(3, simulation.HonestSpec()).
		Power(simulation.SetParticipantPower{ID: 0, Value: 0.35}).
		Rounds(rounds).
		Seed(3).
		Logger(logrus.NewEntry(logger)).
		Build()
	require.NoError(t, err)

	c := New()
	stop := c.Attach(e)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	stop()

	assert.Equal(t, float64(rounds), testutil.ToFloat64(c.rounds))
	var mined float64
	for id := range res.Participants {
		mined += testutil.ToFloat64(c.mined.WithLabelValues(label(simulation.ParticipantID(id))))
	}
	assert.Equal(t, float64(res.BlocksMined), mined)

	var published float64
	for id := range res.Participants {
		published += testutil.ToFloat64(c.published.WithLabelValues(label(simulation.ParticipantID(id))))
	}
	assert.Equal(t, float64(res.BlocksPublished), published)
	assert.Equal(t, float64(e.Tree().PublicDepth()), testutil.ToFloat64(c.depth))
}
