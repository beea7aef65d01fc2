package odx

import "fmt"

// BaseDataType is the scalar wire type of a diag-coded type, per spec.md
// §3.
type BaseDataType int

const (
	AUint32 BaseDataType = iota
	AInt32
	AFloat32
	AFloat64
	AASCIIString
	AUTF8String
	AUnicode2String
	AByteField
	ABoolean
)

func (t BaseDataType) String() string {
	switch t {
	case AUint32:
		return "A_UINT32"
	case AInt32:
		return "A_INT32"
	case AFloat32:
		return "A_FLOAT32"
	case AFloat64:
		return "A_FLOAT64"
	case AASCIIString:
		return "A_ASCIISTRING"
	case AUTF8String:
		return "A_UTF8STRING"
	case AUnicode2String:
		return "A_UNICODE2STRING"
	case AByteField:
		return "A_BYTEFIELD"
	case ABoolean:
		return "A_BOOLEAN"
	default:
		return fmt.Sprintf("BaseDataType(%d)", int(t))
	}
}

// Radix is the preferred display radix for a physical value.
type Radix int

const (
	RadixDec Radix = iota
	RadixHex
	RadixBin
	RadixOct
)

// PhysicalType pairs a BaseDataType with optional display hints, per
// spec.md §3.
type PhysicalType struct {
	Base      BaseDataType
	Radix     Radix
	Precision int // decimal places; 0 means unspecified
}

// Value is the tagged scalar/composite a parameter decodes to or a caller
// supplies for encoding. Exactly one field beyond Kind is meaningful.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindString
	KindBytes
	KindBool
	KindStruct // nested short_name -> Value map
	KindList   // list of KindStruct values (EndOfPduField)
)

type Value struct {
	Kind   ValueKind
	Int    int64
	Float  float64
	Str    string
	Bytes  []byte
	Bool   bool
	Struct ParamMap
	List   []ParamMap
}

// ParamMap is the ordered short_name -> Value mapping a structure decodes
// to. Iteration order follows insertion (decode order), mirrored via Keys.
type ParamMap struct {
	keys   []string
	values map[string]Value
}

func NewParamMap() *ParamMap {
	return &ParamMap{values: make(map[string]Value)}
}

func (m *ParamMap) Set(name string, v Value) {
	if _, ok := m.values[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.values[name] = v
}

func (m *ParamMap) Get(name string) (Value, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *ParamMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func IntValue(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func StructValue(m *ParamMap) Value {
	return Value{Kind: KindStruct, Struct: *m}
}
func ListValue(items []*ParamMap) Value {
	list := make([]ParamMap, len(items))
	for i, it := range items {
		list[i] = *it
	}
	return Value{Kind: KindList, List: list}
}
