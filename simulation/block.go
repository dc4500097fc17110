package simulation

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

const HashLength = 32

type Hash [HashLength]byte

// SetBytes sets the hash to the value of b.
// If b is larger than len(h), b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}

	copy(h[HashLength-len(b):], b)
}

func (h Hash) String() string {
	enc := make([]byte, len(h[:])*2+2)
	copy(enc, "0x")
	hex.Encode(enc[2:], h[:])
	return string(enc)
}

func (h Hash) Bytes() []byte {
	return h[:]
}

// BlockID identifies a block inside a BlockTree. Ids are handed out in
// discovery order and never reused, even after pruning.
type BlockID uint64

// ParticipantID is the dense, zero based index of a participant.
type ParticipantID int

const (
	GenesisID BlockID = 0
	// NoParticipant owns the genesis block.
	NoParticipant ParticipantID = -1
)

// Block is an immutable snapshot of a tree node. Only the publication fields
// change over the life of a block, and only once.
type Block struct {
	id             BlockID
	owner          ParticipantID
	parent         BlockID
	depth          uint64
	round          uint64
	public         bool
	publishSeq     uint64
	publishedRound uint64
}

func genesisBlock() Block {
	return Block{
		id:     GenesisID,
		owner:  NoParticipant,
		parent: GenesisID,
		public: true,
	}
}

func (b Block) ID() BlockID {
	return b.id
}

func (b Block) Owner() ParticipantID {
	return b.owner
}

// Parent returns the parent id. The genesis block reports itself.
func (b Block) Parent() BlockID {
	return b.parent
}

func (b Block) Depth() uint64 {
	return b.depth
}

// Round returns the round in which the block was discovered.
func (b Block) Round() uint64 {
	return b.round
}

func (b Block) Public() bool {
	return b.public
}

// PublishSeq is the position of the block in the global publication order.
// Genesis is 0 and private blocks report 0.
func (b Block) PublishSeq() uint64 {
	return b.publishSeq
}

func (b Block) PublishedRound() uint64 {
	return b.publishedRound
}

func (b Block) IsGenesis() bool {
	return b.id == GenesisID
}

// Hash digests the fields fixed at discovery time.
func (b Block) Hash() (hash Hash) {
	var data [40]byte
	binary.BigEndian.PutUint64(data[0:], uint64(b.id))
	binary.BigEndian.PutUint64(data[8:], uint64(int64(b.owner)))
	binary.BigEndian.PutUint64(data[16:], uint64(b.parent))
	binary.BigEndian.PutUint64(data[24:], b.depth)
	binary.BigEndian.PutUint64(data[32:], b.round)
	sum := blake3.Sum256(data[:])
	hash.SetBytes(sum[:])
	return hash
}

func (b Block) String() string {
	return fmt.Sprintf("{ ID: %v, Owner: %v, Parent: %v, Depth: %v, Round: %v, Public: %v}", b.id, b.owner, b.parent, b.depth, b.round, b.public)
}
