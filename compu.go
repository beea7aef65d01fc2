package odx

import (
	"fmt"
	"math/big"
)

// Limit bounds one side of an internal or physical value range, per
// spec.md §3's "inclusive/exclusive/unbounded" limits.
type LimitKind int

const (
	LimitUnbounded LimitKind = iota
	LimitInclusive
	LimitExclusive
)

type Limit struct {
	Kind  LimitKind
	Value float64
}

func (l Limit) allows(v float64, isLower bool) bool {
	switch l.Kind {
	case LimitUnbounded:
		return true
	case LimitInclusive:
		if isLower {
			return v >= l.Value
		}
		return v <= l.Value
	case LimitExclusive:
		if isLower {
			return v > l.Value
		}
		return v < l.Value
	}
	return false
}

// Limits is the [lower, upper] internal or physical range a computation
// method is declared over. A value outside it fails explicitly, per
// spec.md §4.2.
type Limits struct {
	Lower Limit
	Upper Limit
}

func (lim Limits) contains(v float64) bool {
	return lim.Lower.allows(v, true) && lim.Upper.allows(v, false)
}

// CompuMethod maps internal (wire) values to physical (user-facing)
// values and back, per spec.md §4.2.
type CompuMethod interface {
	InternalToPhysical(internal float64) (Value, error)
	PhysicalToInternal(phys Value) (float64, error)
}

// IdentityCompuMethod passes values through unchanged.
type IdentityCompuMethod struct {
	Base BaseDataType
}

func (m IdentityCompuMethod) InternalToPhysical(internal float64) (Value, error) {
	return physicalFromFloat(m.Base, internal), nil
}

func (m IdentityCompuMethod) PhysicalToInternal(phys Value) (float64, error) {
	return floatFromValue(phys)
}

// LinearCompuMethod implements phys = (factor*internal + offset)/denominator,
// per spec.md §4.2, using exact rational arithmetic so integral results are
// detected without floating-point drift.
type LinearCompuMethod struct {
	Factor         *big.Rat
	Offset         *big.Rat
	Denominator    *big.Rat
	InternalLimits Limits
	PhysicalLimits Limits
	IntegralResult bool // internal/physical are integer-typed
}

func NewLinearCompuMethod(factor, offset, denominator float64, internal, physical Limits, integral bool) *LinearCompuMethod {
	return &LinearCompuMethod{
		Factor:         big.NewRat(1, 1).SetFloat64(factor),
		Offset:         big.NewRat(1, 1).SetFloat64(offset),
		Denominator:    big.NewRat(1, 1).SetFloat64(denominator),
		InternalLimits: internal,
		PhysicalLimits: physical,
		IntegralResult: integral,
	}
}

func (m *LinearCompuMethod) InternalToPhysical(internal float64) (Value, error) {
	if !m.InternalLimits.contains(internal) {
		return Value{}, fmt.Errorf("internal value %v out of limits", internal)
	}
	if m.Denominator.Sign() == 0 {
		return Value{}, fmt.Errorf("linear compu method has zero denominator")
	}
	i := new(big.Rat).SetFloat64(internal)
	num := new(big.Rat).Mul(m.Factor, i)
	num.Add(num, m.Offset)
	phys := new(big.Rat).Quo(num, m.Denominator)

	if !m.PhysicalLimits.contains(ratToFloat(phys)) {
		return Value{}, fmt.Errorf("physical value %v out of limits", ratToFloat(phys))
	}
	if m.IntegralResult {
		if !phys.IsInt() {
			return Value{}, fmt.Errorf("linear compu method: non-integral physical result %v for integral type", phys)
		}
		return IntValue(phys.Num().Int64()), nil
	}
	return FloatValue(ratToFloat(phys)), nil
}

func (m *LinearCompuMethod) PhysicalToInternal(phys Value) (float64, error) {
	p, err := floatFromValue(phys)
	if err != nil {
		return 0, err
	}
	if !m.PhysicalLimits.contains(p) {
		return 0, fmt.Errorf("physical value %v out of limits", p)
	}
	if m.Factor.Sign() == 0 {
		return 0, fmt.Errorf("linear compu method has zero factor, not invertible")
	}
	pr := new(big.Rat).SetFloat64(p)
	num := new(big.Rat).Mul(pr, m.Denominator)
	num.Sub(num, m.Offset)
	internal := new(big.Rat).Quo(num, m.Factor)

	if m.IntegralResult && !internal.IsInt() {
		return 0, fmt.Errorf("linear compu method: non-integral internal result %v for integral type", internal)
	}
	iv := ratToFloat(internal)
	if !m.InternalLimits.contains(iv) {
		return 0, fmt.Errorf("internal value %v out of limits", iv)
	}
	return iv, nil
}

func ratToFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

// TextTableEntry maps one internal integer to a symbolic name.
type TextTableEntry struct {
	Internal int64
	Name     string
}

// TextTableCompuMethod is a one-to-one internal<->symbolic-name mapping.
// Decoding an internal value with no matching entry yields a numeric
// fallback, per spec.md §4.2.
type TextTableCompuMethod struct {
	Entries []TextTableEntry
}

func (m TextTableCompuMethod) InternalToPhysical(internal float64) (Value, error) {
	iv := int64(internal)
	for _, e := range m.Entries {
		if e.Internal == iv {
			return StringValue(e.Name), nil
		}
	}
	return IntValue(iv), nil // numeric fallback
}

func (m TextTableCompuMethod) PhysicalToInternal(phys Value) (float64, error) {
	if phys.Kind == KindString {
		for _, e := range m.Entries {
			if e.Name == phys.Str {
				return float64(e.Internal), nil
			}
		}
		return 0, fmt.Errorf("text table: unknown symbolic name %q", phys.Str)
	}
	return floatFromValue(phys)
}

// ScaleLinearSegment is one piecewise-linear range of a ScaleLinear
// computation method.
type ScaleLinearSegment struct {
	InternalLimits Limits
	Factor         float64
	Offset         float64
	Denominator    float64
}

// ScaleLinearCompuMethod selects the first matching segment by internal
// range, per spec.md §4.2.
type ScaleLinearCompuMethod struct {
	Segments []ScaleLinearSegment
}

func (m ScaleLinearCompuMethod) InternalToPhysical(internal float64) (Value, error) {
	for _, seg := range m.Segments {
		if seg.InternalLimits.contains(internal) {
			if seg.Denominator == 0 {
				return Value{}, fmt.Errorf("scale-linear segment has zero denominator")
			}
			phys := (seg.Factor*internal + seg.Offset) / seg.Denominator
			return FloatValue(phys), nil
		}
	}
	return Value{}, fmt.Errorf("internal value %v matches no scale-linear segment", internal)
}

func (m ScaleLinearCompuMethod) PhysicalToInternal(phys Value) (float64, error) {
	p, err := floatFromValue(phys)
	if err != nil {
		return 0, err
	}
	for _, seg := range m.Segments {
		if seg.Factor == 0 {
			continue
		}
		internal := (p*seg.Denominator - seg.Offset) / seg.Factor
		if seg.InternalLimits.contains(internal) {
			return internal, nil
		}
	}
	return 0, fmt.Errorf("physical value %v matches no scale-linear segment", p)
}

// TabAnchor is one (internal, physical) anchor point of a Tab/TabIntp
// computation method.
type TabAnchor struct {
	Internal float64
	Physical float64
}

// TabCompuMethod looks up the physical value of the nearest anchor at or
// below the internal value (step function), per spec.md §4.2.
type TabCompuMethod struct {
	Anchors []TabAnchor // sorted ascending by Internal
}

func (m TabCompuMethod) InternalToPhysical(internal float64) (Value, error) {
	var best *TabAnchor
	for i := range m.Anchors {
		a := &m.Anchors[i]
		if a.Internal <= internal && (best == nil || a.Internal > best.Internal) {
			best = a
		}
	}
	if best == nil {
		return Value{}, fmt.Errorf("internal value %v below all tab anchors", internal)
	}
	return FloatValue(best.Physical), nil
}

func (m TabCompuMethod) PhysicalToInternal(phys Value) (float64, error) {
	p, err := floatFromValue(phys)
	if err != nil {
		return 0, err
	}
	for _, a := range m.Anchors {
		if a.Physical == p {
			return a.Internal, nil
		}
	}
	return 0, fmt.Errorf("physical value %v matches no tab anchor", p)
}

// TabIntpCompuMethod linearly interpolates between the two anchors
// bracketing the internal value, per spec.md §4.2.
type TabIntpCompuMethod struct {
	Anchors []TabAnchor // sorted ascending by Internal
}

func (m TabIntpCompuMethod) InternalToPhysical(internal float64) (Value, error) {
	n := len(m.Anchors)
	if n == 0 {
		return Value{}, fmt.Errorf("tab-intp has no anchors")
	}
	if internal <= m.Anchors[0].Internal {
		return FloatValue(m.Anchors[0].Physical), nil
	}
	if internal >= m.Anchors[n-1].Internal {
		return FloatValue(m.Anchors[n-1].Physical), nil
	}
	for i := 0; i < n-1; i++ {
		lo, hi := m.Anchors[i], m.Anchors[i+1]
		if internal >= lo.Internal && internal <= hi.Internal {
			span := hi.Internal - lo.Internal
			if span == 0 {
				return FloatValue(lo.Physical), nil
			}
			frac := (internal - lo.Internal) / span
			return FloatValue(lo.Physical + frac*(hi.Physical-lo.Physical)), nil
		}
	}
	return Value{}, fmt.Errorf("internal value %v matches no tab-intp segment", internal)
}

func (m TabIntpCompuMethod) PhysicalToInternal(phys Value) (float64, error) {
	p, err := floatFromValue(phys)
	if err != nil {
		return 0, err
	}
	n := len(m.Anchors)
	if n == 0 {
		return 0, fmt.Errorf("tab-intp has no anchors")
	}
	for i := 0; i < n-1; i++ {
		lo, hi := m.Anchors[i], m.Anchors[i+1]
		min, max := lo.Physical, hi.Physical
		if min > max {
			min, max = max, min
		}
		if p >= min && p <= max {
			span := hi.Physical - lo.Physical
			if span == 0 {
				return lo.Internal, nil
			}
			frac := (p - lo.Physical) / span
			return lo.Internal + frac*(hi.Internal-lo.Internal), nil
		}
	}
	return 0, fmt.Errorf("physical value %v matches no tab-intp segment", p)
}

func floatFromValue(v Value) (float64, error) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), nil
	case KindFloat:
		return v.Float, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot interpret %v as a scalar", v.Kind)
	}
}

func physicalFromFloat(base BaseDataType, f float64) Value {
	switch base {
	case AFloat32, AFloat64:
		return FloatValue(f)
	case ABoolean:
		return BoolValue(f != 0)
	default:
		return IntValue(int64(f))
	}
}
