package odx

import (
	"bytes"
	"testing"
)

func TestStandardLengthTypeUint(t *testing.T) {
	dct := &StandardLengthType{Base: AUint32, BitLength: 8, HighLow: true}
	buf, cur, err := dct.Encode(nil, Cursor{}, IntValue(0x7D), NewEncodeState())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(buf, []byte{0x7D}) {
		t.Errorf("Encode() = %x, want 7d", buf)
	}
	v, _, err := dct.Decode(buf, Cursor{}, NewDecodeState(nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Int != 0x7D {
		t.Errorf("Decode() = %v, want 0x7D", v)
	}
	_ = cur
}

func TestStandardLengthTypeByteField(t *testing.T) {
	dct := &StandardLengthType{Base: AByteField, BitLength: 24}
	buf, _, err := dct.Encode(nil, Cursor{}, BytesValue([]byte{1, 2, 3}), NewEncodeState())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	v, _, err := dct.Decode(buf, Cursor{}, NewDecodeState(nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(v.Bytes, []byte{1, 2, 3}) {
		t.Errorf("Decode() = %v, want [1 2 3]", v.Bytes)
	}
}

func TestStandardLengthTypeNonStandardFloatWidthRejected(t *testing.T) {
	dct := &StandardLengthType{Base: AFloat32, BitLength: 16}
	if _, _, err := dct.Encode(nil, Cursor{}, FloatValue(1.5), NewEncodeState()); err == nil {
		t.Errorf("expected error encoding A_FLOAT32 at a non-standard bit width")
	}
}

func TestLeadingLengthInfoTypeRoundTrip(t *testing.T) {
	dct := &LeadingLengthInfoType{Base: AByteField, BitLengthOfLength: 8, HighLow: true}
	buf, _, err := dct.Encode(nil, Cursor{}, BytesValue([]byte{0xAA, 0xBB}), NewEncodeState())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(buf, []byte{0x02, 0xAA, 0xBB}) {
		t.Errorf("Encode() = %x, want 02aabb", buf)
	}
	v, _, err := dct.Decode(buf, Cursor{}, NewDecodeState(nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(v.Bytes, []byte{0xAA, 0xBB}) {
		t.Errorf("Decode() = %v, want [aa bb]", v.Bytes)
	}
}

func TestMinMaxLengthTypeEndOfPDU(t *testing.T) {
	dct := &MinMaxLengthType{Base: AByteField, Min: 1, Max: 0, Termination: TerminationEndOfPDU}
	v, _, err := dct.Decode([]byte{1, 2, 3, 4}, Cursor{}, NewDecodeState(nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(v.Bytes, []byte{1, 2, 3, 4}) {
		t.Errorf("Decode() = %v, want all remaining bytes", v.Bytes)
	}
}

func TestMinMaxLengthTypeTerminatorByte(t *testing.T) {
	dct := &MinMaxLengthType{Base: AByteField, Min: 1, Max: 10, Termination: TerminationZero}
	v, cur, err := dct.Decode([]byte{1, 2, 0x00, 9, 9}, Cursor{}, NewDecodeState(nil))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(v.Bytes, []byte{1, 2}) {
		t.Errorf("Decode() = %v, want [1 2]", v.Bytes)
	}
	if cur.Byte != 3 {
		t.Errorf("cursor after terminator = %v, want byte 3", cur)
	}
}

func TestMinMaxLengthTypeBelowMinimum(t *testing.T) {
	dct := &MinMaxLengthType{Base: AByteField, Min: 3, Max: 0, Termination: TerminationEndOfPDU}
	if _, _, err := dct.Decode([]byte{1, 2}, Cursor{}, NewDecodeState(nil)); err == nil {
		t.Errorf("expected error when fewer than Min bytes remain")
	}
}

func TestParamLengthInfoTypeUsesDecodedLengthKey(t *testing.T) {
	dec := NewDecodeState(nil)
	dec.values.Set("len", IntValue(2))
	dct := &ParamLengthInfoType{Base: AByteField, LengthKeyName: "len"}
	v, _, err := dct.Decode([]byte{0xAA, 0xBB, 0xCC}, Cursor{}, dec)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(v.Bytes, []byte{0xAA, 0xBB}) {
		t.Errorf("Decode() = %v, want [aa bb]", v.Bytes)
	}
}
