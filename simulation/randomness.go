package simulation

import (
	"encoding/binary"
	"math/rand"

	"github.com/pkg/errors"
	"lukechampine.com/blake3"
)

// hashPRNGSeedConst is mixed into every seed so that small seeds still hash a
// full block of input.
var hashPRNGSeedConst = []byte{0x24, 0x3f, 0x6a, 0x88, 0x85, 0xa3, 0x08, 0xd3}

// RandomnessSource decides which participant discovers the next block.
type RandomnessSource interface {
	// NextDiscoverer draws a participant with probability proportional to its
	// weight. Participants with zero weight are never drawn.
	NextDiscoverer(weights []float64) (ParticipantID, error)
}

// HashPRNG is a deterministic generator built from a blake3 hash chain:
// hash(seed || idx) yields four uint64 values per step. It implements
// rand.Source64, so it can back a *rand.Rand.
type HashPRNG struct {
	seed   Hash
	idx    uint64
	cached Hash
	offset int
}

func NewHashPRNG(seed int64) *HashPRNG {
	p := &HashPRNG{}
	p.Seed(seed)
	return p
}

func (p *HashPRNG) Seed(seed int64) {
	var data [16]byte
	binary.BigEndian.PutUint64(data[:], uint64(seed))
	copy(data[8:], hashPRNGSeedConst)
	p.seed = blake3.Sum256(data[:])
	p.cached = p.seed
	p.idx = 0
	p.offset = 0
}

func (p *HashPRNG) Uint64() uint64 {
	r := binary.BigEndian.Uint64(p.cached[p.offset*8:])
	p.offset++

	// Move to the next hash once all four words of the current one are used.
	if p.offset > 3 {
		var data [HashLength + 8]byte
		copy(data[:], p.seed[:])
		binary.BigEndian.PutUint64(data[HashLength:], p.idx)
		p.cached = blake3.Sum256(data[:])
		p.idx++
		p.offset = 0
	}
	return r
}

func (p *HashPRNG) Int63() int64 {
	return int64(p.Uint64() >> 1)
}

// SeededSource draws discoverers from a *rand.Rand.
type SeededSource struct {
	rng *rand.Rand
}

// NewSeededSource uses the math/rand generator.
func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewSource(seed))}
}

// NewHashSource uses a HashPRNG, whose output does not depend on the Go
// release.
func NewHashSource(seed int64) *SeededSource {
	return &SeededSource{rng: rand.New(NewHashPRNG(seed))}
}

func (s *SeededSource) NextDiscoverer(weights []float64) (ParticipantID, error) {
	return weightedDraw(weights, s.rng.Float64())
}

// weightedDraw maps u in [0, 1) onto the cumulative weights.
func weightedDraw(weights []float64, u float64) (ParticipantID, error) {
	var total float64
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 {
		return 0, invalidConfig("no participant has positive power")
	}

	x := u * total
	var cum float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if x < cum {
			return ParticipantID(i), nil
		}
	}
	// Rounding can leave x at the very top of the range.
	return ParticipantID(last), nil
}

// ExternalSource replays a fixed list of discoverers.
type ExternalSource struct {
	seq []ParticipantID
	pos int
}

func NewExternalSource(seq []ParticipantID) *ExternalSource {
	return &ExternalSource{seq: append([]ParticipantID(nil), seq...)}
}

func (s *ExternalSource) NextDiscoverer(weights []float64) (ParticipantID, error) {
	if s.pos >= len(s.seq) {
		return 0, errors.Wrapf(ErrExhaustedRandomness, "all %d supplied draws used", len(s.seq))
	}
	id := s.seq[s.pos]
	if id < 0 || int(id) >= len(weights) {
		return 0, invalidConfig("external discoverer %d out of range", id)
	}
	s.pos++
	return id, nil
}

// Remaining reports how many draws are left.
func (s *ExternalSource) Remaining() int {
	return len(s.seq) - s.pos
}

// DeriveSeed derives an independent seed from seed and a list of labels.
func DeriveSeed(seed int64, labels ...string) int64 {
	h := blake3.New(32, nil)
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], uint64(seed))
	h.Write(data[:])
	for _, label := range labels {
		// Length prefix keeps ("ab", "c") apart from ("a", "bc").
		binary.BigEndian.PutUint64(data[:], uint64(len(label)))
		h.Write(data[:])
		h.Write([]byte(label))
	}
	return int64(binary.BigEndian.Uint64(h.Sum(nil)))
}
