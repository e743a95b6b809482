package btree

import (
	"fmt"

	"github.com/pagedb/sqlt/internal/pager"
)

// ───────────────────────────────────────────────────────────────────────────
// Tree
// ───────────────────────────────────────────────────────────────────────────
//
// Tree is parameterized by its root page, which may change when the root
// splits (root promotion). Descent, insertion, and scanning all go through
// the Pager; the Tree itself holds no page buffers across calls — see the
// ownership rules in the design document (§3, "Cyclic references between
// tree and pager").

// Tree is a persistent B+Tree mapping non-negative uint32 keys to Rows.
type Tree struct {
	p    *pager.Pager
	root pager.PageID
}

// Create allocates a fresh page, writes an empty leaf to it, and returns a
// Tree rooted there.
func Create(p *pager.Pager) (*Tree, error) {
	id, err := p.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("btree: create: %w", err)
	}
	leaf := newEmptyLeaf(id)
	buf, err := encodeLeaf(leaf, p.PageSize())
	if err != nil {
		return nil, fmt.Errorf("btree: create: %w", err)
	}
	if err := p.WritePage(id, buf); err != nil {
		return nil, fmt.Errorf("btree: create: %w", err)
	}
	return &Tree{p: p, root: id}, nil
}

// Open returns a Tree rooted at an existing page. Nothing is read eagerly —
// pages are loaded on demand.
func Open(p *pager.Pager, root pager.PageID) *Tree {
	return &Tree{p: p, root: root}
}

// RootPage returns the tree's current root page number. It may have changed
// since the last call to Insert if a root promotion occurred.
func (t *Tree) RootPage() pager.PageID { return t.root }

// ── Search ──────────────────────────────────────────────────────────────

// Search returns the row stored at key, or (nil, false) if absent.
func (t *Tree) Search(key uint32) (Row, bool, error) {
	cur := t.root
	for {
		buf, err := t.p.ReadPage(cur)
		if err != nil {
			return nil, false, fmt.Errorf("btree: search: %w", err)
		}
		if nodeTag(buf) == tagLeaf {
			leaf, err := decodeLeaf(cur, buf)
			if err != nil {
				return nil, false, err
			}
			for _, c := range leaf.cells {
				if c.Key == key {
					return c.Row, true, nil
				}
			}
			return nil, false, nil
		}
		node, err := decodeInternal(cur, buf)
		if err != nil {
			return nil, false, err
		}
		cur = node.childFor(key)
	}
}

// ── Scan ────────────────────────────────────────────────────────────────

// Scan returns every (key, row) pair in strictly ascending key order by
// descending to the leftmost leaf and following right-sibling pointers.
func (t *Tree) Scan() ([]LeafCell, error) {
	cur, err := t.leftmostLeaf()
	if err != nil {
		return nil, fmt.Errorf("btree: scan: %w", err)
	}
	var out []LeafCell
	for cur != 0 {
		buf, err := t.p.ReadPage(cur)
		if err != nil {
			return nil, fmt.Errorf("btree: scan: %w", err)
		}
		leaf, err := decodeLeaf(cur, buf)
		if err != nil {
			return nil, err
		}
		out = append(out, leaf.cells...)
		cur = leaf.rightSibling
	}
	return out, nil
}

func (t *Tree) leftmostLeaf() (pager.PageID, error) {
	cur := t.root
	for {
		buf, err := t.p.ReadPage(cur)
		if err != nil {
			return 0, err
		}
		if nodeTag(buf) == tagLeaf {
			return cur, nil
		}
		node, err := decodeInternal(cur, buf)
		if err != nil {
			return 0, err
		}
		cur = node.leftmostChild
	}
}

// ── Insert ──────────────────────────────────────────────────────────────

// Insert adds (key, row) to the tree. It fails with ErrDuplicateKey if key
// already exists. A split that cascades to the root allocates a new root
// page; callers should re-read RootPage() after any successful Insert.
func (t *Tree) Insert(key uint32, row Row) error {
	path, leafID, leaf, err := t.descendToLeaf(key)
	if err != nil {
		return fmt.Errorf("btree: insert: %w", err)
	}

	for _, c := range leaf.cells {
		if c.Key == key {
			return ErrDuplicateKey
		}
	}
	insertCellSorted(leaf, key, row)

	if len(leaf.cells) <= maxLeafCells {
		return t.writeLeaf(leaf)
	}

	// Leaf split: first half stays on the original page, remainder moves to
	// a newly allocated page. The promoted key is the first key of the
	// right half; the new page inherits the old right-sibling pointer.
	rightID, err := t.p.AllocatePage()
	if err != nil {
		return fmt.Errorf("btree: insert: allocate right leaf: %w", err)
	}
	splitAt := (len(leaf.cells) + 1) / 2 // ceil(count/2)
	rightCells := append([]LeafCell(nil), leaf.cells[splitAt:]...)
	leftCells := append([]LeafCell(nil), leaf.cells[:splitAt]...)

	right := &leafNode{page: rightID, cells: rightCells, rightSibling: leaf.rightSibling}
	leaf.cells = leftCells
	leaf.rightSibling = rightID

	if err := t.writeLeaf(leaf); err != nil {
		return err
	}
	if err := t.writeLeaf(right); err != nil {
		return err
	}

	return t.propagateSplit(path, leafID, rightCells[0].Key, rightID)
}

// propagateSplit inserts (promotedKey, newChild) into the parent on the top
// of path, splitting and continuing upward as needed, and promoting a new
// root if the path is exhausted. leftPage is the page number of the node
// that just split (it keeps its identity — only the new right sibling is a
// fresh page).
func (t *Tree) propagateSplit(path []pager.PageID, leftPage pager.PageID, promotedKey uint32, newChild pager.PageID) error {
	for {
		if len(path) == 0 {
			return t.promoteNewRoot(leftPage, promotedKey, newChild)
		}

		parentID := path[len(path)-1]
		path = path[:len(path)-1]

		buf, err := t.p.ReadPage(parentID)
		if err != nil {
			return fmt.Errorf("btree: insert: read parent %d: %w", parentID, err)
		}
		parent, err := decodeInternal(parentID, buf)
		if err != nil {
			return err
		}
		parent.insertSorted(promotedKey, newChild)

		if len(parent.entries) <= maxInternalKeys {
			return t.writeInternal(parent)
		}

		// Internal split: the key at the floor(count/2) position is
		// promoted (moved out, not copied); entries before it stay on the
		// original page, entries after it move to a new page whose
		// leftmost-child is the promoted key's former child.
		splitAt := len(parent.entries) / 2
		promoted := parent.entries[splitAt]
		rightEntries := append([]internalEntry(nil), parent.entries[splitAt+1:]...)
		leftEntries := append([]internalEntry(nil), parent.entries[:splitAt]...)

		rightID, err := t.p.AllocatePage()
		if err != nil {
			return fmt.Errorf("btree: insert: allocate right internal: %w", err)
		}
		right := &internalNode{page: rightID, leftmostChild: promoted.Child, entries: rightEntries}
		parent.entries = leftEntries

		if err := t.writeInternal(parent); err != nil {
			return err
		}
		if err := t.writeInternal(right); err != nil {
			return err
		}

		leftPage = parentID
		promotedKey = promoted.Key
		newChild = rightID
	}
}

func (t *Tree) promoteNewRoot(oldRoot pager.PageID, promotedKey uint32, newChild pager.PageID) error {
	newRootID, err := t.p.AllocatePage()
	if err != nil {
		return fmt.Errorf("btree: insert: allocate new root: %w", err)
	}
	newRoot := &internalNode{
		page:          newRootID,
		leftmostChild: oldRoot,
		entries:       []internalEntry{{Key: promotedKey, Child: newChild}},
	}
	if err := t.writeInternal(newRoot); err != nil {
		return err
	}
	t.root = newRootID
	return nil
}

func insertCellSorted(n *leafNode, key uint32, row Row) {
	pos := 0
	for pos < len(n.cells) && n.cells[pos].Key < key {
		pos++
	}
	n.cells = append(n.cells, LeafCell{})
	copy(n.cells[pos+1:], n.cells[pos:])
	n.cells[pos] = LeafCell{Key: key, Row: row}
}

// descendToLeaf walks from the root to the leaf that should contain key,
// recording the internal nodes visited (root-to-parent, exclusive of the
// leaf) as a path stack for split propagation.
func (t *Tree) descendToLeaf(key uint32) ([]pager.PageID, pager.PageID, *leafNode, error) {
	var path []pager.PageID
	cur := t.root
	for {
		buf, err := t.p.ReadPage(cur)
		if err != nil {
			return nil, 0, nil, err
		}
		if nodeTag(buf) == tagLeaf {
			leaf, err := decodeLeaf(cur, buf)
			if err != nil {
				return nil, 0, nil, err
			}
			return path, cur, leaf, nil
		}
		node, err := decodeInternal(cur, buf)
		if err != nil {
			return nil, 0, nil, err
		}
		path = append(path, cur)
		cur = node.childFor(key)
	}
}

func (t *Tree) writeLeaf(n *leafNode) error {
	buf, err := encodeLeaf(n, t.p.PageSize())
	if err != nil {
		return err
	}
	return t.p.WritePage(n.page, buf)
}

func (t *Tree) writeInternal(n *internalNode) error {
	buf, err := encodeInternal(n, t.p.PageSize())
	if err != nil {
		return err
	}
	return t.p.WritePage(n.page, buf)
}

// ── Diagnostics ─────────────────────────────────────────────────────────

// Stats summarizes the tree's shape with one read-only breadth-first walk.
type Stats struct {
	Height        int
	LeafCount     int
	InternalCount int
	TotalCells    int
}

// Stats computes a shape summary of the tree. It never mutates the tree.
func (t *Tree) Stats() (Stats, error) {
	type frame struct {
		id    pager.PageID
		depth int
	}
	queue := []frame{{t.root, 1}}
	var st Stats
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		buf, err := t.p.ReadPage(f.id)
		if err != nil {
			return Stats{}, fmt.Errorf("btree: stats: %w", err)
		}
		if nodeTag(buf) == tagLeaf {
			leaf, err := decodeLeaf(f.id, buf)
			if err != nil {
				return Stats{}, err
			}
			st.LeafCount++
			st.TotalCells += len(leaf.cells)
			if f.depth > st.Height {
				st.Height = f.depth
			}
			continue
		}
		node, err := decodeInternal(f.id, buf)
		if err != nil {
			return Stats{}, err
		}
		st.InternalCount++
		queue = append(queue, frame{node.leftmostChild, f.depth + 1})
		for _, e := range node.entries {
			queue = append(queue, frame{e.Child, f.depth + 1})
		}
	}
	return st, nil
}
