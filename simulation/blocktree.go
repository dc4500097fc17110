package simulation

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const c_ancestorCacheSize = 4096

// HeadRule decides which of several public blocks at the maximum public depth
// is the canonical head.
type HeadRule uint

const (
	// HeadEarliestPublished picks the block that became public first.
	HeadEarliestPublished HeadRule = iota
	// HeadEarliestDiscovered picks the block with the lowest id.
	HeadEarliestDiscovered
	// HeadLowestParticipant picks the block with the lowest owner id, then the
	// earliest published one.
	HeadLowestParticipant
)

var headRuleNames = map[HeadRule]string{
	HeadEarliestPublished:  "earliest-published",
	HeadEarliestDiscovered: "earliest-discovered",
	HeadLowestParticipant:  "lowest-participant",
}

func (r HeadRule) String() string {
	if name, ok := headRuleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseHeadRule accepts the names printed by HeadRule.String. The empty string
// selects the default rule.
func ParseHeadRule(s string) (HeadRule, error) {
	if s == "" {
		return HeadEarliestPublished, nil
	}
	for rule, name := range headRuleNames {
		if strings.EqualFold(s, name) {
			return rule, nil
		}
	}
	return 0, invalidConfig("unknown head rule %q", s)
}

type node struct {
	block    Block
	children []BlockID
}

type ancestorKey struct {
	id    BlockID
	depth uint64
}

// BlockTree is an arena of blocks indexed by BlockID. Pruned slots are nil.
type BlockTree struct {
	nodes         []*node
	live          int
	publicByDepth map[uint64][]BlockID
	publicDepth   uint64
	head          BlockID
	publishSeq    uint64
	rule          HeadRule
	ancestors     *lru.Cache[ancestorKey, BlockID]
}

// NewBlockTree returns a tree holding only the public genesis block.
func NewBlockTree(rule HeadRule) *BlockTree {
	cache, _ := lru.New[ancestorKey, BlockID](c_ancestorCacheSize)
	return &BlockTree{
		nodes:         []*node{{block: genesisBlock()}},
		live:          1,
		publicByDepth: map[uint64][]BlockID{0: {GenesisID}},
		head:          GenesisID,
		rule:          rule,
		ancestors:     cache,
	}
}

func (t *BlockTree) get(id BlockID) *node {
	if uint64(id) >= uint64(len(t.nodes)) {
		return nil
	}
	return t.nodes[id]
}

// Append adds a private block owned by owner on top of parent.
func (t *BlockTree) Append(parent BlockID, owner ParticipantID, round uint64) (BlockID, error) {
	p := t.get(parent)
	if p == nil {
		return 0, errors.Wrapf(ErrUnknownParent, "block %d", parent)
	}
	id := BlockID(len(t.nodes))
	t.nodes = append(t.nodes, &node{block: Block{
		id:     id,
		owner:  owner,
		parent: parent,
		depth:  p.block.depth + 1,
		round:  round,
	}})
	p.children = append(p.children, id)
	t.live++
	return id, nil
}

// Publish makes id and every unpublished ancestor public, oldest first, and
// returns the ids that changed state. Publishing a public block is a no-op.
func (t *BlockTree) Publish(id BlockID, round uint64) ([]BlockID, error) {
	n := t.get(id)
	if n == nil {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %d", id)
	}
	var pending []*node
	for ; !n.block.public; n = t.nodes[n.block.parent] {
		pending = append(pending, n)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	published := make([]BlockID, 0, len(pending))
	for i := len(pending) - 1; i >= 0; i-- {
		t.markPublic(pending[i], round)
		published = append(published, pending[i].block.id)
	}
	return published, nil
}

func (t *BlockTree) markPublic(n *node, round uint64) {
	t.publishSeq++
	n.block.public = true
	n.block.publishSeq = t.publishSeq
	n.block.publishedRound = round

	depth := n.block.depth
	t.publicByDepth[depth] = append(t.publicByDepth[depth], n.block.id)
	if depth < t.publicDepth {
		return
	}
	t.publicDepth = depth
	t.head = t.chooseHead()
}

func (t *BlockTree) chooseHead() BlockID {
	tips := t.publicByDepth[t.publicDepth]
	best := t.nodes[tips[0]].block
	for _, id := range tips[1:] {
		if b := t.nodes[id].block; t.prefer(b, best) {
			best = b
		}
	}
	return best.id
}

func (t *BlockTree) prefer(a, b Block) bool {
	switch t.rule {
	case HeadEarliestDiscovered:
		return a.id < b.id
	case HeadLowestParticipant:
		if a.owner != b.owner {
			return a.owner < b.owner
		}
	}
	return a.publishSeq < b.publishSeq
}

// CanonicalHead returns the deepest public block under the tree's HeadRule.
func (t *BlockTree) CanonicalHead() BlockID {
	return t.head
}

func (t *BlockTree) HeadRule() HeadRule {
	return t.rule
}

// Block returns a copy of the block and whether the tree holds it.
func (t *BlockTree) Block(id BlockID) (Block, bool) {
	n := t.get(id)
	if n == nil {
		return Block{}, false
	}
	return n.block, true
}

func (t *BlockTree) Contains(id BlockID) bool {
	return t.get(id) != nil
}

// Depth, Parent and IsPublic report zero values for ids the tree does not hold.
func (t *BlockTree) Depth(id BlockID) uint64 {
	if n := t.get(id); n != nil {
		return n.block.depth
	}
	return 0
}

func (t *BlockTree) Parent(id BlockID) BlockID {
	if n := t.get(id); n != nil {
		return n.block.parent
	}
	return GenesisID
}

func (t *BlockTree) IsPublic(id BlockID) bool {
	n := t.get(id)
	return n != nil && n.block.public
}

func (t *BlockTree) Children(id BlockID) []BlockID {
	n := t.get(id)
	if n == nil {
		return nil
	}
	return append([]BlockID(nil), n.children...)
}

// Len is the number of blocks currently held, genesis included.
func (t *BlockTree) Len() int {
	return t.live
}

// Discovered is the number of blocks ever appended, pruned ones included.
func (t *BlockTree) Discovered() uint64 {
	return uint64(len(t.nodes) - 1)
}

// Published is the number of blocks that ever became public, genesis excluded.
func (t *BlockTree) Published() uint64 {
	return t.publishSeq
}

func (t *BlockTree) PublicDepth() uint64 {
	return t.publicDepth
}

// PublicTips returns the public blocks at the maximum public depth in
// publication order.
func (t *BlockTree) PublicTips() []BlockID {
	return t.PublicAt(t.publicDepth)
}

func (t *BlockTree) PublicAt(depth uint64) []BlockID {
	return append([]BlockID(nil), t.publicByDepth[depth]...)
}

// Ancestor returns the ancestor of id at the given depth.
func (t *BlockTree) Ancestor(id BlockID, depth uint64) (BlockID, bool) {
	n := t.get(id)
	if n == nil || depth > n.block.depth {
		return 0, false
	}
	key := ancestorKey{id: id, depth: depth}
	if a, ok := t.ancestors.Get(key); ok {
		return a, true
	}
	for n.block.depth > depth {
		n = t.nodes[n.block.parent]
	}
	t.ancestors.Add(key, n.block.id)
	return n.block.id, true
}

// IsAncestor reports whether a is b or one of b's ancestors.
func (t *BlockTree) IsAncestor(a, b BlockID) bool {
	na := t.get(a)
	if na == nil {
		return false
	}
	anc, ok := t.Ancestor(b, na.block.depth)
	return ok && anc == a
}

// ChainTo returns the blocks from genesis (exclusive) to id (inclusive).
func (t *BlockTree) ChainTo(id BlockID) []BlockID {
	n := t.get(id)
	if n == nil {
		return nil
	}
	chain := make([]BlockID, n.block.depth)
	for ; !n.block.IsGenesis(); n = t.nodes[n.block.parent] {
		chain[n.block.depth-1] = n.block.id
	}
	return chain
}

// CanonicalChain returns the canonical chain without genesis, oldest first.
func (t *BlockTree) CanonicalChain() []BlockID {
	return t.ChainTo(t.head)
}

// LiveTips returns the public blocks without public children whose depth is
// within window of the maximum public depth, deepest first.
func (t *BlockTree) LiveTips(window uint64) []BlockID {
	var low uint64
	if t.publicDepth > window {
		low = t.publicDepth - window
	}
	var tips []BlockID
	for d := t.publicDepth + 1; d > low; d-- {
		for _, id := range t.publicByDepth[d-1] {
			if !t.hasPublicChild(t.nodes[id]) {
				tips = append(tips, id)
			}
		}
	}
	return tips
}

func (t *BlockTree) hasPublicChild(n *node) bool {
	for _, c := range n.children {
		if t.nodes[c].block.public {
			return true
		}
	}
	return false
}

// PruneStale drops every block that is not an ancestor of a live tip, of the
// canonical head, or of a public block within window of the maximum public
// depth. It returns the number of blocks removed.
func (t *BlockTree) PruneStale(live []BlockID, window uint64) int {
	keep := make([]bool, len(t.nodes))
	mark := func(id BlockID) {
		n := t.get(id)
		for n != nil && !keep[n.block.id] {
			keep[n.block.id] = true
			if n.block.IsGenesis() {
				return
			}
			n = t.nodes[n.block.parent]
		}
	}
	for _, id := range live {
		mark(id)
	}
	mark(t.head)
	for _, id := range t.LiveTips(window) {
		mark(id)
	}

	removed := 0
	for i, n := range t.nodes {
		if n == nil || keep[i] {
			continue
		}
		t.nodes[i] = nil
		removed++
	}
	if removed == 0 {
		return 0
	}

	for _, n := range t.nodes {
		if n == nil {
			continue
		}
		kept := n.children[:0]
		for _, c := range n.children {
			if t.nodes[c] != nil {
				kept = append(kept, c)
			}
		}
		n.children = kept
	}
	for depth, ids := range t.publicByDepth {
		kept := ids[:0]
		for _, id := range ids {
			if t.nodes[id] != nil {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(t.publicByDepth, depth)
			continue
		}
		t.publicByDepth[depth] = kept
	}
	t.live -= removed
	t.ancestors.Purge()
	return removed
}

// Snapshot returns every block still held, in id order.
func (t *BlockTree) Snapshot() []Block {
	blocks := make([]Block, 0, t.live)
	for _, n := range t.nodes {
		if n != nil {
			blocks = append(blocks, n.block)
		}
	}
	return blocks
}

// Validate checks the structural invariants of the whole tree.
func (t *BlockTree) Validate() error {
	var maxPublic uint64
	for i, n := range t.nodes {
		if n == nil {
			continue
		}
		b := n.block
		if b.id != BlockID(i) {
			return errors.Errorf("block at slot %d reports id %d", i, b.id)
		}
		if b.public && b.depth > maxPublic {
			maxPublic = b.depth
		}
		if b.IsGenesis() {
			continue
		}
		p := t.get(b.parent)
		if p == nil {
			return errors.Wrapf(ErrUnknownParent, "block %d references %d", b.id, b.parent)
		}
		if b.depth != p.block.depth+1 {
			return errors.Errorf("block %d has depth %d, parent %d has depth %d", b.id, b.depth, p.block.id, p.block.depth)
		}
		if b.public && !p.block.public {
			return errors.Errorf("public block %d has private parent %d", b.id, p.block.id)
		}
		found := false
		for _, c := range p.children {
			if c == b.id {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("block %d missing from children of %d", b.id, p.block.id)
		}
	}
	if maxPublic != t.publicDepth {
		return errors.Errorf("public depth %d, deepest public block at %d", t.publicDepth, maxPublic)
	}
	head := t.get(t.head)
	if head == nil || !head.block.public || head.block.depth != t.publicDepth {
		return errors.Errorf("canonical head %d is not a public tip", t.head)
	}
	return nil
}
