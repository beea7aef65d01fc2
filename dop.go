package odx

import "fmt"

// DataObjectProperty composes a diag-coded type with a computation
// method and a physical type, per spec.md §3/§4.2.
type DataObjectProperty struct {
	OdxId        OdxId
	ShortName    string
	DiagCodedType DiagCodedType
	CompuMethod  CompuMethod
	Physical     PhysicalType
}

// Decode reads the wire representation and converts it to a physical
// value.
func (d *DataObjectProperty) Decode(buf []byte, cur Cursor, dec *DecodeState) (Value, Cursor, error) {
	internal, newCur, err := d.DiagCodedType.Decode(buf, cur, dec)
	if err != nil {
		return Value{}, cur, err
	}
	iv, err := floatFromValue(internal)
	if err != nil {
		// non-scalar internal representations (bytes/strings) pass
		// through the compu method unchanged: DOPs over A_BYTEFIELD/
		// A_ASCIISTRING etc. commonly carry an identity compu method.
		return internal, newCur, nil
	}
	phys, err := d.CompuMethod.InternalToPhysical(iv)
	if err != nil {
		return Value{}, cur, fmt.Errorf("dop %s: %w", d.ShortName, err)
	}
	return phys, newCur, nil
}

// Encode converts a physical value to internal and writes its wire
// representation.
func (d *DataObjectProperty) Encode(buf []byte, cur Cursor, phys Value, enc *EncodeState) ([]byte, Cursor, error) {
	if phys.Kind == KindBytes || phys.Kind == KindString {
		return d.DiagCodedType.Encode(buf, cur, phys, enc)
	}
	internal, err := d.CompuMethod.PhysicalToInternal(phys)
	if err != nil {
		return buf, cur, fmt.Errorf("dop %s: %w", d.ShortName, err)
	}
	return d.DiagCodedType.Encode(buf, cur, physicalFromFloat(d.Physical.Base, internal), enc)
}

// DiagnosticTroubleCode pairs a coded numeric id with its display name,
// one entry of a DtcDataObjectProperty's table. Supplemented from
// original_source's DtcDop/DiagnosticTroubleCode (SPEC_FULL.md §9).
type DiagnosticTroubleCode struct {
	TroubleCode string
	CodedValue  uint32
}

// DtcDataObjectProperty is a DOP specialization that resolves a decoded
// internal value against a fixed DTC table, returning both the raw
// physical value and the matching trouble code name (if any) as a
// KindStruct value with "value" and "troubleCode" entries.
type DtcDataObjectProperty struct {
	DataObjectProperty
	Codes []DiagnosticTroubleCode
}

func (d *DtcDataObjectProperty) Decode(buf []byte, cur Cursor, dec *DecodeState) (Value, Cursor, error) {
	phys, newCur, err := d.DataObjectProperty.Decode(buf, cur, dec)
	if err != nil {
		return Value{}, cur, err
	}
	iv, err := floatFromValue(phys)
	if err != nil {
		return phys, newCur, nil
	}
	out := NewParamMap()
	out.Set("value", phys)
	for _, c := range d.Codes {
		if uint32(iv) == c.CodedValue {
			out.Set("troubleCode", StringValue(c.TroubleCode))
			break
		}
	}
	return StructValue(out), newCur, nil
}
