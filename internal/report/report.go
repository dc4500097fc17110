// Package report turns simulation results into tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/shreekarashastry/miningsim/simulation"
)

const c_precision = 6

// Average reduces the repetitions of one power distribution to a single row.
type Average int

const (
	NoAverage Average = iota
	Mean
	Median
	Min
	Max
)

var averageNames = map[Average]string{
	NoAverage: "none",
	Mean:      "mean",
	Median:    "median",
	Min:       "min",
	Max:       "max",
}

func (a Average) String() string {
	if name, ok := averageNames[a]; ok {
		return name
	}
	return "unknown"
}

func ParseAverage(s string) (Average, error) {
	for a, name := range averageNames {
		if strings.EqualFold(s, name) {
			return a, nil
		}
	}
	if s == "" {
		return Mean, nil
	}
	return NoAverage, errors.Errorf("unknown average %q", s)
}

// Of reduces values. It returns zero for an empty slice.
func (a Average) Of(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch a {
	case Median:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		if mid := len(sorted) / 2; len(sorted)%2 == 0 {
			return stat.Mean(sorted[mid-1:mid+1], nil)
		}
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	case Min:
		return floats.Min(values)
	case Max:
		return floats.Max(values)
	default:
		return stat.Mean(values, nil)
	}
}

// Format selects how a Table is written.
type Format int

const (
	Text Format = iota
	CSV
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "table", "text":
		return Text, nil
	case "csv":
		return CSV, nil
	default:
		return Text, errors.Errorf("unknown output format %q", s)
	}
}

// Table is a rendered result set.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) Write(w io.Writer, format Format) error {
	if format == CSV {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Columns); err != nil {
			return errors.Wrap(err, "write csv header")
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return errors.Wrap(err, "write csv rows")
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return errors.Wrap(tw.Flush(), "write table")
}

// Reference adds a column computed from the power of every participant,
// such as the revenue a closed form model predicts for one of them.
type Reference struct {
	Participant simulation.ParticipantID
	Title       string
	Func        func(power []float64) float64
}

// SelfishReference predicts the revenue of a selfish participant. shares[i]
// is the probability that participant i mines on the selfish block during a
// race; gamma is their power weighted mean over everyone but id.
func SelfishReference(id simulation.ParticipantID, shares []float64) Reference {
	shares = append([]float64(nil), shares...)
	title := fmt.Sprintf("p%d selfish ideal (gamma=weighted)", id)
	if g, ok := uniformShare(id, shares); ok {
		title = fmt.Sprintf("p%d selfish ideal (gamma=%g)", id, g)
	}
	return Reference{
		Participant: id,
		Title:       title,
		Func: func(power []float64) float64 {
			return simulation.SelfishRevenue(at(power, id), raceGamma(id, power, shares))
		},
	}
}

// NothingAtStakeReference predicts the revenue of a nothing-at-stake
// participant.
func NothingAtStakeReference(id simulation.ParticipantID) Reference {
	return Reference{
		Participant: id,
		Title:       fmt.Sprintf("p%d nothing-at-stake ideal", id),
		Func: func(power []float64) float64 {
			return simulation.NothingAtStakeRevenue(at(power, id))
		},
	}
}

// ReferencesFor picks the reference columns matching the built-in strategies
// of cfg. Participants built from a factory get none.
func ReferencesFor(cfg simulation.Config) []Reference {
	var refs []Reference
	for i, p := range cfg.Participants {
		if p.Factory != nil {
			continue
		}
		id := simulation.ParticipantID(i)
		switch simulation.Kind(strings.ToLower(string(p.Strategy.Kind))) {
		case simulation.KindSelfish:
			shares := make([]float64, len(cfg.Participants))
			for j, other := range cfg.Participants {
				if j != i && other.Factory == nil {
					shares[j] = raceShare(other.Strategy, id)
				}
			}
			refs = append(refs, SelfishReference(id, shares))
		case simulation.KindNothingAtStake:
			refs = append(refs, NothingAtStakeReference(id))
		}
	}
	return refs
}

// raceShare is the probability that a participant running spec extends the
// block of id when it ties with another public tip.
func raceShare(spec simulation.StrategySpec, id simulation.ParticipantID) float64 {
	if simulation.Kind(strings.ToLower(string(spec.Kind))) != simulation.KindHonest {
		return 0
	}
	tb := spec.TieBreaker
	if tb.Participant != id {
		return 0
	}
	switch strings.ToLower(tb.Rule) {
	case simulation.TieFavor, simulation.TieFavorFork:
		return 1
	case simulation.TieFavorProb:
		return tb.Gamma
	}
	return 0
}

func raceGamma(id simulation.ParticipantID, power, shares []float64) float64 {
	others := make([]float64, 0, len(shares))
	weights := make([]float64, 0, len(shares))
	for j, s := range shares {
		if simulation.ParticipantID(j) == id {
			continue
		}
		others = append(others, s)
		weights = append(weights, at(power, simulation.ParticipantID(j)))
	}
	if floats.Sum(weights) == 0 {
		return 0
	}
	return stat.Mean(others, weights)
}

func uniformShare(id simulation.ParticipantID, shares []float64) (float64, bool) {
	g, seen := 0.0, false
	for j, s := range shares {
		if simulation.ParticipantID(j) == id {
			continue
		}
		if seen && s != g {
			return 0, false
		}
		g, seen = s, true
	}
	return g, true
}

func at(values []float64, id simulation.ParticipantID) float64 {
	if int(id) < 0 || int(id) >= len(values) {
		return 0
	}
	return values[id]
}

// Run tabulates a single result, one row per participant.
func Run(res *simulation.Result) *Table {
	t := &Table{Columns: []string{"participant", "strategy", "power", "mined", "canonical", "revenue"}}
	for _, p := range res.Participants {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(int(p.ID)),
			p.Strategy,
			formatFloat(p.Power),
			strconv.FormatUint(p.Mined, 10),
			strconv.FormatUint(p.Canonical, 10),
			formatFloat(p.Revenue),
		})
	}
	return t
}

// Sweep tabulates group trials, one row per power distribution, or one row
// per trial with NoAverage.
func Sweep(trials []simulation.Trial, avg Average, refs ...Reference) *Table {
	t := &Table{}
	if len(trials) == 0 {
		return t
	}
	n := len(trials[0].Result.Participants)

	t.Columns = []string{"power"}
	if avg == NoAverage {
		t.Columns = append(t.Columns, "repeat")
	} else {
		t.Columns = append(t.Columns, "average")
	}
	t.Columns = append(t.Columns, "rounds", "chain length", "blocks published")
	for i := 0; i < n; i++ {
		t.Columns = append(t.Columns,
			fmt.Sprintf("p%d strategy", i),
			fmt.Sprintf("p%d power", i),
			fmt.Sprintf("p%d revenue", i))
	}
	for _, ref := range refs {
		t.Columns = append(t.Columns, ref.Title)
	}

	for _, group := range byPower(trials, avg) {
		first := group[0].Result
		row := []string{group[0].Power.String()}
		if avg == NoAverage {
			row = append(row, strconv.Itoa(group[0].Repeat))
		} else {
			row = append(row, avg.String())
		}
		row = append(row,
			formatFloat(avg.Of(collect(group, func(r *simulation.Result) float64 { return float64(r.Rounds) }))),
			formatFloat(avg.Of(collect(group, func(r *simulation.Result) float64 { return float64(r.ChainLength) }))),
			formatFloat(avg.Of(collect(group, func(r *simulation.Result) float64 { return float64(r.BlocksPublished) }))))
		for i := 0; i < n; i++ {
			row = append(row,
				first.Participants[i].Strategy,
				formatFloat(first.Participants[i].Power),
				formatFloat(avg.Of(collect(group, func(r *simulation.Result) float64 { return r.Revenue(simulation.ParticipantID(i)) }))))
		}
		power := Powers(first)
		for _, ref := range refs {
			row = append(row, formatFloat(ref.Func(power)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// byPower splits trials, which arrive ordered by power distribution, into
// one group per distribution, or one group per trial with NoAverage.
func byPower(trials []simulation.Trial, avg Average) [][]simulation.Trial {
	var groups [][]simulation.Trial
	for i, tr := range trials {
		if avg == NoAverage || i == 0 || tr.PowerIndex != trials[i-1].PowerIndex {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], tr)
	}
	return groups
}

func collect(trials []simulation.Trial, f func(*simulation.Result) float64) []float64 {
	values := make([]float64, len(trials))
	for i, tr := range trials {
		values[i] = f(tr.Result)
	}
	return values
}

// Powers lists the power of every participant of res.
func Powers(res *simulation.Result) []float64 {
	power := make([]float64, len(res.Participants))
	for i, p := range res.Participants {
		power[i] = p.Power
	}
	return power
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', c_precision, 64)
}
