package simulation

import (
	"encoding/binary"
	"math"

	"lukechampine.com/blake3"
)

// ParticipantInfo is the static description of a participant handed to the
// accountant.
type ParticipantInfo struct {
	Strategy string
	Power    float64
}

type ParticipantResult struct {
	ID       ParticipantID
	Strategy string
	Power    float64
	// Mined counts every block discovered, canonical or not.
	Mined uint64
	// Canonical counts the blocks on the final canonical chain.
	Canonical uint64
	// Revenue is Canonical divided by the canonical chain length.
	Revenue float64
}

// Result is the outcome of one run.
type Result struct {
	Rounds          uint64
	Head            BlockID
	ChainLength     uint64
	BlocksMined     uint64
	BlocksPublished uint64
	Participants    []ParticipantResult
	// Blocks is the final tree, pruned blocks excluded.
	Blocks  []Block
	Records []RoundRecord
}

// Account walks the canonical chain and turns it into revenue shares. Blocks
// that never became canonical earn nothing. With an empty chain every share
// is zero.
func Account(tree *BlockTree, records []RoundRecord, participants []ParticipantInfo) *Result {
	res := &Result{
		Rounds:          uint64(len(records)),
		Head:            tree.CanonicalHead(),
		BlocksMined:     tree.Discovered(),
		BlocksPublished: tree.Published(),
		Participants:    make([]ParticipantResult, len(participants)),
		Blocks:          tree.Snapshot(),
		Records:         records,
	}
	for i, p := range participants {
		res.Participants[i] = ParticipantResult{
			ID:       ParticipantID(i),
			Strategy: p.Strategy,
			Power:    p.Power,
		}
	}
	for _, rec := range records {
		if int(rec.Discoverer) < len(res.Participants) {
			res.Participants[rec.Discoverer].Mined += uint64(len(rec.Mined))
		}
	}

	chain := tree.CanonicalChain()
	res.ChainLength = uint64(len(chain))
	for _, id := range chain {
		b, _ := tree.Block(id)
		if owner := int(b.Owner()); owner >= 0 && owner < len(res.Participants) {
			res.Participants[owner].Canonical++
		}
	}
	if res.ChainLength == 0 {
		return res
	}
	for i := range res.Participants {
		res.Participants[i].Revenue = float64(res.Participants[i].Canonical) / float64(res.ChainLength)
	}
	return res
}

// Revenue returns the revenue share of a participant.
func (r *Result) Revenue(id ParticipantID) float64 {
	if int(id) < 0 || int(id) >= len(r.Participants) {
		return 0
	}
	return r.Participants[id].Revenue
}

// Fingerprint digests the round log and the per participant outcome. Two runs
// with the same fingerprint made the same decisions.
func (r *Result) Fingerprint() (hash Hash) {
	h := blake3.New(HashLength, nil)
	var buf [8]byte
	put := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putIDs := func(ids []BlockID) {
		put(uint64(len(ids)))
		for _, id := range ids {
			put(uint64(id))
		}
	}

	put(r.Rounds)
	for _, rec := range r.Records {
		put(rec.Round)
		put(uint64(rec.Discoverer))
		putIDs(rec.Mined)
		for _, a := range rec.Actions {
			put(uint64(a.Participant))
			put(uint64(a.Action))
			putIDs(a.Targets)
			putIDs(a.Published)
			put(uint64(a.Lead))
			if a.Err != nil {
				msg := a.Err.Error()
				put(uint64(len(msg)))
				h.Write([]byte(msg))
			}
		}
		put(uint64(rec.Head))
		put(rec.HeadDepth)
	}
	for _, p := range r.Participants {
		put(p.Mined)
		put(p.Canonical)
		put(math.Float64bits(p.Revenue))
	}
	hash.SetBytes(h.Sum(nil))
	return hash
}

// SelfishRevenue is the revenue Eyal and Sirer derive for a selfish miner
// with power alpha when a gamma fraction of honest power mines on its block
// during a race.
func SelfishRevenue(alpha, gamma float64) float64 {
	a := alpha
	return (a*math.Pow(1-a, 2)*(4*a+gamma*(1-2*a)) - math.Pow(a, 3)) /
		(1 - a*(1+a*(2-a)))
}

// NothingAtStakeRevenue is the ideal revenue of a nothing-at-stake miner with
// power alpha against honest miners.
func NothingAtStakeRevenue(alpha float64) float64 {
	a := alpha
	return (4*math.Pow(a, 2) - 8*math.Pow(a, 3) - math.Pow(a, 4) + 7*math.Pow(a, 5) - 3*math.Pow(a, 6)) /
		(1 - a - 2*math.Pow(a, 2) + 3*math.Pow(a, 4) - 3*math.Pow(a, 5) + math.Pow(a, 6))
}
