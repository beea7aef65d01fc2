package odx

import "sort"

// TrieNode is one level of the prefix-tree identifier, per spec.md §4.7.
// Keys are raw integer field values scoped to the bit-width that produced
// them — a node is never padded to a full byte, so a byte can branch into
// two nibble-sized children when two services disagree only on a
// half-byte field.
type TrieNode struct {
	width    int // bit width consumed to reach this node's children
	children map[int]*TrieNode
	services []*DiagService // sentinel list, spec.md's key "-1"
}

func newTrieNode() *TrieNode {
	return &TrieNode{children: make(map[int]*TrieNode)}
}

type codedConstField struct {
	bytePos, bitPos, bitLength int
	value                      uint64
}

// orderedCodedConsts returns a request's coded-const parameters with
// known byte positions, ordered by position ascending, per spec.md §4.7.
func orderedCodedConsts(req *Request) []codedConstField {
	var fields []codedConstField
	for _, p := range req.Parameters {
		cc, ok := p.(*CodedConstParameter)
		if !ok {
			continue
		}
		bytePos, ok := cc.BytePosition()
		if !ok {
			continue
		}
		bitPos, ok := cc.BitPosition()
		if !ok {
			bitPos = 0
		}
		bl, ok := cc.FixedBitLength()
		if !ok {
			continue
		}
		fields = append(fields, codedConstField{bytePos: bytePos, bitPos: bitPos, bitLength: bl, value: cc.CodedValue})
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].bytePos != fields[j].bytePos {
			return fields[i].bytePos < fields[j].bytePos
		}
		return fields[i].bitPos < fields[j].bitPos
	})
	return fields
}

// trieTransition is one level of descent contributed by a single
// CodedConst field.
type trieTransition struct {
	width int
	key   int
}

// byteTransitions decomposes one coded-const field into a big-endian
// sequence of whole-byte transitions, rounded up to whole bytes with any
// leftover low bits trailing as a final sub-byte transition, per spec.md
// §4.7 ("walk the tree byte by byte of each coded constant"). A field no
// wider than a byte collapses to its existing single-node behavior.
func byteTransitions(f codedConstField) []trieTransition {
	nFullBytes := f.bitLength / 8
	remainder := f.bitLength % 8
	transitions := make([]trieTransition, 0, nFullBytes+1)
	for i := 0; i < nFullBytes; i++ {
		shift := f.bitLength - (i+1)*8
		transitions = append(transitions, trieTransition{width: 8, key: int((f.value >> uint(shift)) & 0xFF)})
	}
	if remainder > 0 {
		mask := uint64(1)<<uint(remainder) - 1
		transitions = append(transitions, trieTransition{width: remainder, key: int(f.value & mask)})
	}
	return transitions
}

// BuildTrie constructs a prefix tree over every service in layer whose
// request has a deterministic coded-const prefix, per spec.md §4.7.
func BuildTrie(services []*DiagService) *TrieNode {
	root := newTrieNode()
	for _, svc := range services {
		if svc.Request == nil {
			continue
		}
		fields := orderedCodedConsts(svc.Request)
		node := root
		for _, f := range fields {
			for _, t := range byteTransitions(f) {
				node.width = t.width
				child, ok := node.children[t.key]
				if !ok {
					child = newTrieNode()
					node.children[t.key] = child
				}
				node = child
			}
		}
		node.services = append(node.services, svc)
	}
	return root
}

// Identify walks pdu against the trie, collecting every service whose
// sentinel is visited along the path. Never fails: an empty result is a
// valid outcome, per spec.md §4.9.
func (n *TrieNode) Identify(pdu []byte) []*DiagService {
	var out []*DiagService
	node := n
	cur := Cursor{}
	for {
		out = append(out, node.services...)
		if len(node.children) == 0 {
			break
		}
		v, newCur, err := readUint(pdu, cur, node.width, true)
		if err != nil {
			break
		}
		child, ok := node.children[int(v)]
		if !ok {
			break
		}
		node = child
		cur = newCur
	}
	return out
}
