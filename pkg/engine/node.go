package engine

import "encoding/binary"

const nodeHeaderSize = 8

// btreeNode is the in-memory form of an XDX node.
// Leaves carry one (key, recno) per entry; internal nodes additionally
// carry a left-child offset per entry plus a trailing right-most
// child offset.
type btreeNode struct {
	offset   uint32
	isLeaf   bool
	parent   uint32
	keys     [][]byte
	recnos   []uint32
	children []uint32 // len(keys)+1 entries when internal
	dirty    bool
}

// entrySize returns the per-key byte footprint for a node of the given
// key length and leaf-ness, matching 's fixed per-node size formula.
func entrySize(keyLength int, isLeaf bool) int {
	if isLeaf {
		return keyLength + 4
	}
	return keyLength + 4 + 4
}

// nodeSize returns the fixed on-disk size for any node of this index:
// header(8) + order*(key_length+4[+4 if internal]) + (4 if internal).
func nodeSize(order, keyLength int, isLeaf bool) int {
	size := nodeHeaderSize + order*entrySize(keyLength, isLeaf)
	if !isLeaf {
		size += 4
	}
	return size
}

func encodeNode(n *btreeNode, order, keyLength int) []byte {
	buf := make([]byte, nodeSize(order, keyLength, n.isLeaf))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(n.keys)))
	if n.isLeaf {
		buf[2] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:8], n.parent)

	off := nodeHeaderSize
	step := entrySize(keyLength, n.isLeaf)
	for i, k := range n.keys {
		copy(buf[off:off+keyLength], k)
		binary.LittleEndian.PutUint32(buf[off+keyLength:off+keyLength+4], n.recnos[i])
		if !n.isLeaf {
			binary.LittleEndian.PutUint32(buf[off+keyLength+4:off+keyLength+8], n.children[i])
		}
		off += step
	}
	if !n.isLeaf {
		tailOff := nodeHeaderSize + order*step
		var rightChild uint32
		if len(n.children) > len(n.keys) {
			rightChild = n.children[len(n.keys)]
		}
		binary.LittleEndian.PutUint32(buf[tailOff:tailOff+4], rightChild)
	}
	return buf
}

func decodeNode(buf []byte, offset uint32, order, keyLength int) *btreeNode {
	n := &btreeNode{offset: offset}
	keyCount := int(binary.LittleEndian.Uint16(buf[0:2]))
	n.isLeaf = buf[2] == 1
	n.parent = binary.LittleEndian.Uint32(buf[4:8])

	n.keys = make([][]byte, keyCount)
	n.recnos = make([]uint32, keyCount)
	if !n.isLeaf {
		n.children = make([]uint32, keyCount+1)
	}

	off := nodeHeaderSize
	step := entrySize(keyLength, n.isLeaf)
	for i := 0; i < keyCount; i++ {
		key := make([]byte, keyLength)
		copy(key, buf[off:off+keyLength])
		n.keys[i] = key
		n.recnos[i] = binary.LittleEndian.Uint32(buf[off+keyLength : off+keyLength+4])
		if !n.isLeaf {
			n.children[i] = binary.LittleEndian.Uint32(buf[off+keyLength+4 : off+keyLength+8])
		}
		off += step
	}
	if !n.isLeaf {
		tailOff := nodeHeaderSize + order*step
		n.children[keyCount] = binary.LittleEndian.Uint32(buf[tailOff : tailOff+4])
	}
	return n
}
