package engine

import "encoding/binary"

const (
	xdxHeaderSize  = 512
	xdxMagic       = "XDX"
	xdxVersion     = 1
	flagUnique     = 0x01
	flagDescending = 0x02
	maxKeyExprLen  = 256

	// DefaultOrder is the B-tree order CreateIndex callers use when the
	// caller has no reason to pick one of their own (INDEX ON has no
	// order clause, so the session package always passes this).
	DefaultOrder = 50

	// MinOrder is the smallest order CreateIndex accepts. Below 3 an
	// internal split has nothing to promote and still leave both
	// children non-empty.
	MinOrder = 3
)

type xdxHeader struct {
	keyType    byte
	keyLength  uint16
	rootOffset uint32
	nodeCount  uint32
	order      uint16
	flags      uint16
	keyExpr    string
}

func decodeXdxHeader(b []byte) (xdxHeader, *Error) {
	if string(b[0:3]) != xdxMagic {
		return xdxHeader{}, newError(KindInvalidIndex, "bad magic")
	}
	h := xdxHeader{
		keyType:    b[5],
		keyLength:  binary.LittleEndian.Uint16(b[6:8]),
		rootOffset: binary.LittleEndian.Uint32(b[8:12]),
		nodeCount:  binary.LittleEndian.Uint32(b[12:16]),
		order:      binary.LittleEndian.Uint16(b[16:18]),
		flags:      binary.LittleEndian.Uint16(b[18:20]),
	}
	end := 20
	for end < 20+maxKeyExprLen && b[end] != 0 {
		end++
	}
	h.keyExpr = string(b[20:end])
	return h, nil
}

func (h xdxHeader) encode() []byte {
	b := make([]byte, xdxHeaderSize)
	copy(b[0:3], xdxMagic)
	b[4] = xdxVersion
	b[5] = h.keyType
	binary.LittleEndian.PutUint16(b[6:8], h.keyLength)
	binary.LittleEndian.PutUint32(b[8:12], h.rootOffset)
	binary.LittleEndian.PutUint32(b[12:16], h.nodeCount)
	binary.LittleEndian.PutUint16(b[16:18], h.order)
	binary.LittleEndian.PutUint16(b[18:20], h.flags)
	copy(b[20:20+maxKeyExprLen], h.keyExpr)
	return b
}

// Index is an open XDX B-tree file.
type Index struct {
	f      *file
	header xdxHeader

	// seek/navigation cursor
	leafOffset uint32
	entryIdx   int
	found      bool
	recno      uint32
	bof        bool
	eof        bool
}

func (x *Index) KeyExpr() string     { return x.header.keyExpr }
func (x *Index) KeyType() byte       { return x.header.keyType }
func (x *Index) KeyLength() int      { return int(x.header.keyLength) }
func (x *Index) IsUnique() bool      { return x.header.flags&flagUnique != 0 }
func (x *Index) IsDescending() bool  { return x.header.flags&flagDescending != 0 }
func (x *Index) Found() bool         { return x.found }
func (x *Index) RecNo() uint32       { return x.recno }
func (x *Index) Eof() bool           { return x.eof }
func (x *Index) Bof() bool           { return x.bof }
func (x *Index) Filename() string    { return x.f.name }

func (x *Index) compare(a, b []byte) int {
	return compareKeys(x.header.keyType, a, b, x.IsDescending())
}

// CreateIndex writes a fresh 512-byte header and a single empty leaf
// root. order is the maximum number of keys a settled node holds;
// callers with no opinion on it should pass DefaultOrder.
func CreateIndex(path, keyExpr string, keyType byte, keyLength int, unique, descending bool, order int) (*Index, *Error) {
	full := withExtension(path, "xdx")
	if keyLength < 1 || keyLength > maxKeyExprLen {
		return nil, newError(KindInvalidIndex, "key length %d out of range", keyLength)
	}
	if order < MinOrder {
		return nil, newError(KindInvalidIndex, "order %d below minimum %d", order, MinOrder)
	}
	f, ferr := createFile(full, true)
	if ferr != nil {
		return nil, ferr
	}

	var flags uint16
	if unique {
		flags |= flagUnique
	}
	if descending {
		flags |= flagDescending
	}
	h := xdxHeader{
		keyType:    keyType,
		keyLength:  uint16(keyLength),
		order:      uint16(order),
		flags:      flags,
		keyExpr:    keyExpr,
		nodeCount:  0,
		rootOffset: xdxHeaderSize,
	}
	x := &Index{f: f, header: h, bof: true, eof: true}

	root := &btreeNode{offset: xdxHeaderSize, isLeaf: true}
	if err := x.writeNode(root); err != nil {
		f.close()
		return nil, err
	}
	x.header.nodeCount = 1
	if err := x.writeHeader(); err != nil {
		f.close()
		return nil, err
	}
	if err := f.flush(); err != nil {
		f.close()
		return nil, err
	}
	return x, nil
}

// OpenIndex reads and validates an existing XDX header.
func OpenIndex(path string) (*Index, *Error) {
	full := withExtension(path, "xdx")
	f, ferr := openFile(full, false)
	if ferr != nil {
		return nil, ferr
	}
	buf := make([]byte, xdxHeaderSize)
	if _, err := f.readAt(0, buf); err != nil {
		f.close()
		return nil, err
	}
	h, err := decodeXdxHeader(buf)
	if err != nil {
		f.close()
		return nil, err
	}
	return &Index{f: f, header: h, bof: true, eof: true}, nil
}

func (x *Index) writeHeader() *Error {
	return x.f.writeAt(0, x.header.encode())
}

// Close flushes and releases the handle; safe to call twice.
func (x *Index) Close() *Error {
	if x == nil || x.f == nil {
		return nil
	}
	ferr := x.Flush()
	err := x.f.close()
	x.f = nil
	if ferr != nil {
		return ferr
	}
	return err
}

// Flush commits the header to disk.
func (x *Index) Flush() *Error {
	if err := x.writeHeader(); err != nil {
		return err
	}
	return x.f.flush()
}

func (x *Index) readNode(offset uint32, isLeafHint bool) (*btreeNode, *Error) {
	// peek the common header to learn key_count and is_leaf before
	// sizing the full read.
	head := make([]byte, nodeHeaderSize)
	if _, err := x.f.readAt(int64(offset), head); err != nil {
		return nil, err
	}
	isLeaf := head[2] == 1
	size := nodeSize(x.nodeCapacity(), int(x.header.keyLength), isLeaf)
	buf := make([]byte, size)
	if _, err := x.f.readAt(int64(offset), buf); err != nil {
		return nil, err
	}
	return decodeNode(buf, offset, x.nodeCapacity(), int(x.header.keyLength)), nil
}

func (x *Index) writeNode(n *btreeNode) *Error {
	buf := encodeNode(n, x.nodeCapacity(), int(x.header.keyLength))
	return x.f.writeAt(int64(n.offset), buf)
}

// nodeCapacity is the fixed on-disk slot count every node of this
// index reserves. It is one more than the configured order: an
// internal node settles at up to order+1 keys (see overflowed), and a
// leaf transiently holds order+1 keys between an insert and its split.
func (x *Index) nodeCapacity() int {
	return int(x.header.order) + 1
}

// overflowed reports whether n holds more keys than its kind allows
// at rest. Internal nodes tolerate one more settled key than leaves:
// a split promotes one key out of an internal node (rather than
// duplicating it, as the leaf branch does), so without that extra
// slot of headroom an order as low as MinOrder could never leave both
// halves of an internal split at the minimum ceil(order/2) occupancy.
func (x *Index) overflowed(n *btreeNode) bool {
	limit := int(x.header.order)
	if !n.isLeaf {
		limit++
	}
	return len(n.keys) > limit
}

// splitPoint returns the index of the key promoted to the parent
// during a split. A leaf's sibling keeps a copy of the promoted key,
// so the literal midpoint balances it; an internal node's promoted
// key is removed from both sides, so the midpoint is taken over the
// keys that remain once it is set aside.
func (x *Index) splitPoint(n *btreeNode) int {
	if n.isLeaf {
		return len(n.keys) / 2
	}
	return (len(n.keys) - 1) / 2
}

// allocateNode appends a brand new node at the current end of file.
func (x *Index) allocateNode(isLeaf bool, parent uint32) (*btreeNode, *Error) {
	offset := uint32(x.f.length)
	n := &btreeNode{offset: offset, isLeaf: isLeaf, parent: parent}
	if err := x.writeNode(n); err != nil {
		return nil, err
	}
	x.header.nodeCount++
	return n, nil
}

// searchNode finds the first index i in n.keys where key compares <= keys[i]
// under this index's comparator (a lower bound), and also reports whether
// keys[i] is an exact comparator match.
func (x *Index) searchNode(n *btreeNode, key []byte) (pos int, exact bool) {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if x.compare(key, n.keys[mid]) <= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo < len(n.keys) && x.compare(key, n.keys[lo]) == 0 {
		return lo, true
	}
	return lo, false
}

// Insert descends to the correct leaf, checks uniqueness, inserts, and
// splits upward as needed.
func (x *Index) Insert(key []byte, recno uint32) *Error {
	if len(key) != int(x.header.keyLength) {
		return newError(KindInvalidIndex, "key length mismatch: got %d want %d", len(key), x.header.keyLength)
	}
	path, leaf, err := x.descendToLeaf(key)
	if err != nil {
		return err
	}
	pos, exact := x.searchNode(leaf, key)
	if exact && x.IsUnique() {
		return newError(KindDuplicateKey, "duplicate key")
	}
	// insert at pos (after any comparator-equal run, so duplicates on
	// non-unique indexes keep insertion order)
	for pos < len(leaf.keys) && x.compare(key, leaf.keys[pos]) == 0 {
		pos++
	}
	insertEntry(leaf, pos, key, recno, 0)

	rootChanged := false
	if x.overflowed(leaf) {
		// leaf now holds one more key than nodeCapacity's resting size
		// allows; splitUp trims it before either half ever reaches
		// disk, so there is nothing to write here yet.
		rc, err := x.splitUp(append(path, leaf))
		if err != nil {
			return err
		}
		rootChanged = rc
	} else if err := x.writeNode(leaf); err != nil {
		return err
	}
	if rootChanged {
		if err := x.writeHeader(); err != nil {
			return err
		}
	}
	return nil
}

func insertEntry(n *btreeNode, pos int, key []byte, recno, child uint32) {
	n.keys = append(n.keys, nil)
	copy(n.keys[pos+1:], n.keys[pos:])
	n.keys[pos] = key

	n.recnos = append(n.recnos, 0)
	copy(n.recnos[pos+1:], n.recnos[pos:])
	n.recnos[pos] = recno

	if !n.isLeaf {
		n.children = append(n.children, 0)
		copy(n.children[pos+2:], n.children[pos+1:])
		n.children[pos+1] = child
	}
}

// descendToLeaf walks from the root to the leaf that should contain
// key, returning the internal-node path taken (root first) and the
// leaf itself.
func (x *Index) descendToLeaf(key []byte) ([]*btreeNode, *btreeNode, *Error) {
	var path []*btreeNode
	offset := x.header.rootOffset
	for {
		n, err := x.readNode(offset, false)
		if err != nil {
			return nil, nil, err
		}
		if n.isLeaf {
			return path, n, nil
		}
		path = append(path, n)
		pos, exact := x.searchNode(n, key)
		if exact {
			offset = n.children[pos+1]
		} else {
			offset = n.children[pos]
		}
	}
}

// splitUp splits the tail node of path (last element) if it overflows,
// promoting the median key into its parent, cascading upward and
// allocating a new root if the root itself splits. Returns whether the
// root changed.
func (x *Index) splitUp(path []*btreeNode) (bool, *Error) {
	node := path[len(path)-1]
	rootChanged := false
	for x.overflowed(node) {
		mid := x.splitPoint(node)
		upKey := node.keys[mid]
		upRecno := node.recnos[mid]

		sibling := &btreeNode{isLeaf: node.isLeaf, parent: node.parent}
		var newSiblingOffset uint32
		if node.isLeaf {
			sibling.keys = append([][]byte{}, node.keys[mid:]...)
			sibling.recnos = append([]uint32{}, node.recnos[mid:]...)
			node.keys = node.keys[:mid]
			node.recnos = node.recnos[:mid]
		} else {
			sibling.keys = append([][]byte{}, node.keys[mid+1:]...)
			sibling.recnos = append([]uint32{}, node.recnos[mid+1:]...)
			sibling.children = append([]uint32{}, node.children[mid+1:]...)
			node.keys = node.keys[:mid]
			node.recnos = node.recnos[:mid]
			node.children = node.children[:mid+1]
		}

		allocated, err := x.allocateNode(sibling.isLeaf, node.parent)
		if err != nil {
			return rootChanged, err
		}
		newSiblingOffset = allocated.offset
		sibling.offset = newSiblingOffset
		if !sibling.isLeaf {
			if err := x.reparentChildren(sibling); err != nil {
				return rootChanged, err
			}
		}
		if err := x.writeNode(sibling); err != nil {
			return rootChanged, err
		}
		if err := x.writeNode(node); err != nil {
			return rootChanged, err
		}

		if len(path) == 1 {
			// node was the root: allocate a fresh internal root
			newRoot := &btreeNode{
				isLeaf:   false,
				keys:     [][]byte{upKey},
				recnos:   []uint32{upRecno},
				children: []uint32{node.offset, sibling.offset},
			}
			allocatedRoot, err := x.allocateNode(false, 0)
			if err != nil {
				return rootChanged, err
			}
			newRoot.offset = allocatedRoot.offset
			node.parent = newRoot.offset
			sibling.parent = newRoot.offset
			if err := x.writeNode(node); err != nil {
				return rootChanged, err
			}
			if err := x.writeNode(sibling); err != nil {
				return rootChanged, err
			}
			if err := x.writeNode(newRoot); err != nil {
				return rootChanged, err
			}
			x.header.rootOffset = newRoot.offset
			return true, nil
		}

		parent := path[len(path)-2]
		pos, _ := x.searchNode(parent, upKey)
		insertEntry(parent, pos, upKey, upRecno, sibling.offset)
		// ensure the left child at pos still points at node (searchNode's
		// pos is where upKey lands; node remains children[pos])
		parent.children[pos] = node.offset

		path = path[:len(path)-1]
		node = parent
	}
	if len(path) > 0 {
		if err := x.writeNode(node); err != nil {
			return rootChanged, err
		}
	}
	return rootChanged, nil
}

func (x *Index) reparentChildren(n *btreeNode) *Error {
	for _, childOffset := range n.children {
		child, err := x.readNode(childOffset, false)
		if err != nil {
			return err
		}
		child.parent = n.offset
		if err := x.writeNode(child); err != nil {
			return err
		}
	}
	return nil
}

// Seek descends for an exact or near match.
func (x *Index) Seek(key []byte) *Error {
	_, leaf, err := x.descendToLeaf(key)
	if err != nil {
		return err
	}
	pos, exact := x.searchNode(leaf, key)
	x.leafOffset = leaf.offset
	x.entryIdx = pos
	x.bof, x.eof = false, false
	if exact {
		x.found = true
		x.recno = leaf.recnos[pos]
		return nil
	}
	x.found = false
	if pos < len(leaf.keys) {
		x.recno = leaf.recnos[pos]
		return nil
	}
	// no successor in this leaf: find it via the parent chain
	nextLeaf, nextIdx, ok := x.nextEntry(leaf, pos)
	if !ok {
		x.recno = 0
		x.eof = true
		return nil
	}
	x.leafOffset = nextLeaf.offset
	x.entryIdx = nextIdx
	x.recno = nextLeaf.recnos[nextIdx]
	return nil
}

// Delete removes the (key, recno) leaf entry, if present.
func (x *Index) Delete(key []byte, recno uint32) (bool, *Error) {
	_, leaf, err := x.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	pos, exact := x.searchNode(leaf, key)
	if !exact {
		return false, nil
	}
	for pos < len(leaf.keys) && x.compare(key, leaf.keys[pos]) == 0 {
		if leaf.recnos[pos] == recno {
			leaf.keys = append(leaf.keys[:pos], leaf.keys[pos+1:]...)
			leaf.recnos = append(leaf.recnos[:pos], leaf.recnos[pos+1:]...)
			if err := x.writeNode(leaf); err != nil {
				return false, err
			}
			return true, nil
		}
		pos++
	}
	return false, nil
}

// leftmost / rightmost descend a child chain to the boundary leaf.
func (x *Index) leftmost(offset uint32) (*btreeNode, *Error) {
	for {
		n, err := x.readNode(offset, false)
		if err != nil {
			return nil, err
		}
		if n.isLeaf {
			return n, nil
		}
		offset = n.children[0]
	}
}

func (x *Index) rightmost(offset uint32) (*btreeNode, *Error) {
	for {
		n, err := x.readNode(offset, false)
		if err != nil {
			return nil, err
		}
		if n.isLeaf {
			return n, nil
		}
		offset = n.children[len(n.children)-1]
	}
}

// GoTop positions the cursor on the first (key, recno) in comparator
// order.
func (x *Index) GoTop() *Error {
	leaf, err := x.leftmost(x.header.rootOffset)
	if err != nil {
		return err
	}
	x.leafOffset = leaf.offset
	x.entryIdx = 0
	if len(leaf.keys) == 0 {
		x.bof, x.eof, x.recno, x.found = true, true, 0, false
		return nil
	}
	x.bof, x.eof, x.found = false, false, false
	x.recno = leaf.recnos[0]
	return nil
}

// GoBottom positions the cursor on the last (key, recno).
func (x *Index) GoBottom() *Error {
	leaf, err := x.rightmost(x.header.rootOffset)
	if err != nil {
		return err
	}
	if len(leaf.keys) == 0 {
		x.leafOffset = leaf.offset
		x.entryIdx = 0
		x.bof, x.eof, x.recno, x.found = true, true, 0, false
		return nil
	}
	x.leafOffset = leaf.offset
	x.entryIdx = len(leaf.keys) - 1
	x.bof, x.eof, x.found = false, false, false
	x.recno = leaf.recnos[x.entryIdx]
	return nil
}

// childIndex finds which slot of parent.children equals child's offset.
func childIndex(parent *btreeNode, child uint32) int {
	for i, c := range parent.children {
		if c == child {
			return i
		}
	}
	return -1
}

// nextEntry finds the successor of (leaf, idx) by walking up the
// parent chain when the current leaf is exhausted; there are no leaf
// sibling pointers in this format, so ancestry is the only path.
func (x *Index) nextEntry(leaf *btreeNode, idx int) (*btreeNode, int, bool) {
	if idx+1 < len(leaf.keys) {
		return leaf, idx + 1, true
	}
	node := leaf
	for node.offset != x.header.rootOffset {
		parent, err := x.readNode(node.parent, false)
		if err != nil {
			return nil, 0, false
		}
		ci := childIndex(parent, node.offset)
		if ci >= 0 && ci+1 < len(parent.children) {
			nextLeaf, err := x.leftmost(parent.children[ci+1])
			if err != nil || len(nextLeaf.keys) == 0 {
				return nil, 0, false
			}
			return nextLeaf, 0, true
		}
		node = parent
	}
	return nil, 0, false
}

// prevEntry is nextEntry's mirror image, walking to the predecessor.
func (x *Index) prevEntry(leaf *btreeNode, idx int) (*btreeNode, int, bool) {
	if idx-1 >= 0 {
		return leaf, idx - 1, true
	}
	node := leaf
	for node.offset != x.header.rootOffset {
		parent, err := x.readNode(node.parent, false)
		if err != nil {
			return nil, 0, false
		}
		ci := childIndex(parent, node.offset)
		if ci > 0 {
			prevLeaf, err := x.rightmost(parent.children[ci-1])
			if err != nil || len(prevLeaf.keys) == 0 {
				return nil, 0, false
			}
			return prevLeaf, len(prevLeaf.keys) - 1, true
		}
		node = parent
	}
	return nil, 0, false
}

// Skip moves the cursor forward (or backward) count entries, saturating
// at BOF/EOF.
func (x *Index) Skip(count int) *Error {
	if x.bof && count > 0 {
		if err := x.GoTop(); err != nil {
			return err
		}
		count--
	}
	leaf, err := x.readNode(x.leafOffset, false)
	if err != nil {
		return err
	}
	idx := x.entryIdx
	for count > 0 {
		nl, ni, ok := x.nextEntry(leaf, idx)
		if !ok {
			x.eof, x.recno, x.found = true, 0, false
			return nil
		}
		leaf, idx = nl, ni
		count--
	}
	for count < 0 {
		pl, pi, ok := x.prevEntry(leaf, idx)
		if !ok {
			x.bof, x.recno, x.found = true, 0, false
			return nil
		}
		leaf, idx = pl, pi
		count++
	}
	x.leafOffset, x.entryIdx = leaf.offset, idx
	x.bof, x.eof, x.found = false, false, false
	x.recno = leaf.recnos[idx]
	return nil
}

// Reindex truncates the tree and rebuilds it from a DBF traversal,
// calling keyFn for every non-deleted record to obtain its key bytes
//. On UNIQUE indexes, duplicate keys are skipped rather
// than aborting the rebuild; it returns the count of skipped rows.
func (x *Index) Reindex(dbf *Dbf, keyFn func(*Dbf) ([]byte, *Error)) (skipped int, rerr *Error) {
	if err := x.f.truncate(xdxHeaderSize); err != nil {
		return 0, err
	}
	x.header.nodeCount = 0
	x.header.rootOffset = xdxHeaderSize
	root := &btreeNode{offset: xdxHeaderSize, isLeaf: true}
	if err := x.writeNode(root); err != nil {
		return 0, err
	}
	x.header.nodeCount = 1
	if err := x.writeHeader(); err != nil {
		return 0, err
	}

	total := dbf.RecordCount()
	for r := uint32(1); r <= total; r++ {
		if err := dbf.Goto(r); err != nil {
			return skipped, err
		}
		if dbf.Deleted() {
			continue
		}
		key, err := keyFn(dbf)
		if err != nil {
			return skipped, err
		}
		if ierr := x.Insert(key, r); ierr != nil {
			if ierr.Kind == KindDuplicateKey {
				skipped++
				continue
			}
			return skipped, ierr
		}
	}
	return skipped, x.Flush()
}
