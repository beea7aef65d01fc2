package odx

import (
	"fmt"
	"sort"
)

// Structure is an ordered parameter container with an optional fixed
// byte_size, per spec.md §3/§4.4.
type Structure struct {
	OdxId      OdxId
	ShortName  string
	Parameters []Parameter
	ByteSize   *int
}

// Request is a Structure marked as the request side of a DiagService.
type Request struct {
	Structure
}

// Response is a Structure marked as a positive or negative response.
type Response struct {
	Structure
	Positive bool
}

// resolveParameterReferences drives phase 2 for every parameter of s that
// carries a cross-document reference (a DOP bound by OdxRef rather than
// wired directly), recursing into TableStruct dispatch targets.
func (s *Structure) resolveParameterReferences(db *OdxLinkDatabase, scope *Scope) error {
	for _, p := range s.Parameters {
		wired := false
		switch q := p.(type) {
		case *ValueParameter:
			wired = q.DOP != nil
		case *PhysicalConstantParameter:
			wired = q.DOP != nil
		case *TableKeyParameter:
			wired = q.DOP != nil
		}
		if r, ok := p.(Referencing); ok && !wired {
			if err := r.resolveReferences(db, scope); err != nil {
				return err
			}
		}
		if ts, ok := p.(*TableStructParameter); ok {
			for _, e := range ts.Entries {
				if err := e.Structure.resolveParameterReferences(db, scope); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func splitPlacedFlowing(params []Parameter) (placed, flowing []Parameter) {
	for _, p := range params {
		if _, ok := p.BytePosition(); ok {
			placed = append(placed, p)
		} else {
			flowing = append(flowing, p)
		}
	}
	sort.SliceStable(placed, func(i, j int) bool {
		bi, _ := placed[i].BytePosition()
		bj, _ := placed[j].BytePosition()
		if bi != bj {
			return bi < bj
		}
		bti, _ := placed[i].BitPosition()
		btj, _ := placed[j].BitPosition()
		return bti < btj
	})
	return placed, flowing
}

// ValidatePositions checks that fixed-position parameters do not overlap
// bit-by-bit, per spec.md §3's positioning invariant. Only parameters
// whose FixedBitLength is known can be checked; variable-length
// positioned fields are exempt (their extent isn't known until encode).
func (s *Structure) ValidatePositions(strict bool) error {
	if !strict {
		return nil
	}
	placed, _ := splitPlacedFlowing(s.Parameters)
	type span struct {
		name     string
		lo, hi   int // bit offsets, hi exclusive
	}
	var spans []span
	for _, p := range placed {
		bl, ok := p.FixedBitLength()
		if !ok {
			continue
		}
		bytePos, _ := p.BytePosition()
		bitPos, _ := p.BitPosition()
		lo := bytePos*8 + bitPos
		spans = append(spans, span{name: p.ShortName(), lo: lo, hi: lo + bl})
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].lo < spans[j].hi && spans[j].lo < spans[i].hi {
				return &ResolutionError{SubKind: "overlap", Id: s.ShortName, Detail: fmt.Sprintf("parameters %q and %q have overlapping fixed positions", spans[i].name, spans[j].name)}
			}
		}
	}
	return nil
}

// encodeBody writes this structure's parameters starting at start,
// relative positioning per spec.md §4.4's two-pass algorithm. It does not
// resolve length-key fix-ups; callers at the top of the encode (Encode,
// below) do that once for the whole PDU.
func (s *Structure) encodeBody(buf []byte, start Cursor, values *ParamMap, enc *EncodeState) ([]byte, Cursor, error) {
	placed, flowing := splitPlacedFlowing(s.Parameters)

	placedMaxEnd := 0
	for _, p := range placed {
		bytePos, _ := p.BytePosition()
		bitPos, ok := p.BitPosition()
		if !ok {
			bitPos = 0
		}
		cur := Cursor{Byte: start.Byte + bytePos, Bit: bitPos}
		var err error
		var newCur Cursor
		buf, newCur, err = p.EncodeInto(buf, cur, values, enc)
		if err != nil {
			return buf, start, err
		}
		if rel := newCur.Byte - start.Byte; rel > placedMaxEnd {
			placedMaxEnd = rel
		}
	}

	cur := Cursor{Byte: start.Byte + placedMaxEnd, Bit: 0}
	for _, p := range flowing {
		var err error
		buf, cur, err = p.EncodeInto(buf, cur, values, enc)
		if err != nil {
			return buf, start, err
		}
	}

	end := cur
	if placedMaxEnd > end.Byte-start.Byte {
		end = Cursor{Byte: start.Byte + placedMaxEnd}
	}
	if s.ByteSize != nil {
		want := start.Byte + *s.ByteSize
		if want > end.Byte {
			grown := make([]byte, want)
			copy(grown, buf)
			buf = grown
			end = Cursor{Byte: want}
		}
	}
	return buf, end, nil
}

// Encode is the top-level entry point: it lays out values into a fresh
// PDU and resolves every deferred length-key fix-up before returning.
func (s *Structure) Encode(values *ParamMap) ([]byte, error) {
	enc := NewEncodeState()
	buf, end, err := s.encodeBody(nil, Cursor{}, values, enc)
	if err != nil {
		return nil, err
	}
	buf, err = enc.resolveFixups(buf)
	if err != nil {
		return nil, err
	}
	if end.Byte < len(buf) {
		buf = buf[:end.Byte]
	}
	return buf, nil
}

// decodeBody reads this structure's parameters starting at start,
// returning the decoded mapping and the cursor just past this
// structure's region.
func (s *Structure) decodeBody(buf []byte, start Cursor, request []byte) (*ParamMap, Cursor, error) {
	dec := NewDecodeState(request)
	placed, flowing := splitPlacedFlowing(s.Parameters)

	placedMaxEnd := 0
	for _, p := range placed {
		bytePos, _ := p.BytePosition()
		bitPos, ok := p.BitPosition()
		if !ok {
			bitPos = 0
		}
		cur := Cursor{Byte: start.Byte + bytePos, Bit: bitPos}
		v, newCur, err := p.DecodeFrom(buf, cur, dec)
		if err != nil {
			return nil, start, err
		}
		dec.values.Set(p.ShortName(), v)
		if rel := newCur.Byte - start.Byte; rel > placedMaxEnd {
			placedMaxEnd = rel
		}
	}

	cur := Cursor{Byte: start.Byte + placedMaxEnd, Bit: 0}
	for _, p := range flowing {
		v, newCur, err := p.DecodeFrom(buf, cur, dec)
		if err != nil {
			return nil, start, err
		}
		dec.values.Set(p.ShortName(), v)
		cur = newCur
	}

	end := cur
	if placedMaxEnd > end.Byte-start.Byte {
		end = Cursor{Byte: start.Byte + placedMaxEnd}
	}
	if s.ByteSize != nil {
		end = Cursor{Byte: start.Byte + *s.ByteSize}
	}
	return dec.values, end, nil
}

// Decode is the top-level entry point for a Request/Response structure.
func (s *Structure) Decode(buf []byte, request []byte) (*ParamMap, error) {
	m, _, err := s.decodeBody(buf, Cursor{}, request)
	return m, err
}

// EndOfPduField repeats a structure until the PDU ends, optionally
// bounded by a minimum/maximum repeat count, per spec.md §3/§4.5.
type EndOfPduField struct {
	OdxId        OdxId
	ShortName    string
	StructureRef OdxRef
	Structure    *Structure // resolved
	MinCount     *int
	MaxCount     *int
}

func (f *EndOfPduField) resolveReferences(db *OdxLinkDatabase, scope *Scope) error {
	s, err := Resolve[*Structure](db, scope, f.StructureRef)
	if err != nil {
		return err
	}
	f.Structure = s
	return nil
}

// Encode concatenates the encodings of each supplied structure map.
func (f *EndOfPduField) Encode(items []*ParamMap, enc *EncodeState) ([]byte, error) {
	var buf []byte
	cur := Cursor{}
	for _, item := range items {
		var err error
		buf, cur, err = f.Structure.encodeBody(buf, cur, item, enc)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode repeats Structure.decodeBody while bytes remain, respecting
// MinCount/MaxCount, per spec.md §4.5.
func (f *EndOfPduField) Decode(buf []byte, request []byte) ([]*ParamMap, error) {
	var out []*ParamMap
	cur := Cursor{}
	count := 0
	for cur.Byte < len(buf) {
		if f.MaxCount != nil && count >= *f.MaxCount {
			break
		}
		m, newCur, err := f.Structure.decodeBody(buf, cur, request)
		if err != nil {
			if f.MinCount != nil && count >= *f.MinCount {
				break
			}
			return nil, err
		}
		if newCur.Byte == cur.Byte && newCur.Bit == cur.Bit {
			// a structure that consumes zero bytes would loop forever
			return nil, &DecodeError{ShortName: f.ShortName, Offset: cur, Reason: "repeated structure consumed zero bytes"}
		}
		out = append(out, m)
		cur = newCur
		count++
	}
	if f.MinCount != nil && count < *f.MinCount {
		return nil, &DecodeError{ShortName: f.ShortName, Offset: cur, Reason: fmt.Sprintf("only %d repetitions decoded, minimum is %d", count, *f.MinCount)}
	}
	return out, nil
}
