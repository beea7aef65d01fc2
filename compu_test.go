package odx

import "testing"

func TestLinearCompuMethodRoundTrip(t *testing.T) {
	// phys = 5*internal + 1, per spec.md's linear DOP seed scenario.
	m := NewLinearCompuMethod(5, 1, 1, Limits{}, Limits{}, true)

	phys, err := m.InternalToPhysical(18) // 0x12
	if err != nil {
		t.Fatalf("InternalToPhysical() error = %v", err)
	}
	if phys.Kind != KindInt || phys.Int != 91 {
		t.Errorf("InternalToPhysical(18) = %v, want 91", phys)
	}

	internal, err := m.PhysicalToInternal(IntValue(91))
	if err != nil {
		t.Fatalf("PhysicalToInternal() error = %v", err)
	}
	if internal != 18 {
		t.Errorf("PhysicalToInternal(91) = %v, want 18", internal)
	}
}

func TestLinearCompuMethodLimits(t *testing.T) {
	m := NewLinearCompuMethod(1, 0, 1,
		Limits{Lower: Limit{Kind: LimitInclusive, Value: 0}, Upper: Limit{Kind: LimitInclusive, Value: 10}},
		Limits{}, false)
	if _, err := m.InternalToPhysical(11); err == nil {
		t.Errorf("expected out-of-limits error")
	}
	if _, err := m.InternalToPhysical(10); err != nil {
		t.Errorf("InternalToPhysical(10) unexpected error = %v", err)
	}
}

func TestLinearCompuMethodNonIntegralRejected(t *testing.T) {
	m := NewLinearCompuMethod(1, 1, 3, Limits{}, Limits{}, true)
	if _, err := m.InternalToPhysical(1); err == nil {
		t.Errorf("expected non-integral result to be rejected for an integral-typed compu method")
	}
}

func TestTextTableCompuMethod(t *testing.T) {
	m := TextTableCompuMethod{Entries: []TextTableEntry{
		{Internal: 0, Name: "off"},
		{Internal: 1, Name: "on"},
	}}
	phys, err := m.InternalToPhysical(1)
	if err != nil || phys.Str != "on" {
		t.Errorf("InternalToPhysical(1) = %v, %v, want \"on\"", phys, err)
	}
	// unmapped internal values fall back to numeric.
	phys, err = m.InternalToPhysical(42)
	if err != nil || phys.Kind != KindInt || phys.Int != 42 {
		t.Errorf("InternalToPhysical(42) = %v, %v, want numeric fallback 42", phys, err)
	}
	internal, err := m.PhysicalToInternal(StringValue("off"))
	if err != nil || internal != 0 {
		t.Errorf("PhysicalToInternal(off) = %v, %v, want 0", internal, err)
	}
	if _, err := m.PhysicalToInternal(StringValue("unknown")); err == nil {
		t.Errorf("expected error for unknown symbolic name")
	}
}

func TestScaleLinearCompuMethod(t *testing.T) {
	m := ScaleLinearCompuMethod{Segments: []ScaleLinearSegment{
		{InternalLimits: Limits{Lower: Limit{Kind: LimitInclusive, Value: 0}, Upper: Limit{Kind: LimitExclusive, Value: 100}}, Factor: 1, Denominator: 1},
		{InternalLimits: Limits{Lower: Limit{Kind: LimitInclusive, Value: 100}, Upper: Limit{Kind: LimitUnbounded}}, Factor: 2, Offset: -100, Denominator: 1},
	}}
	phys, err := m.InternalToPhysical(50)
	if err != nil || phys.Float != 50 {
		t.Errorf("segment 1: InternalToPhysical(50) = %v, %v", phys, err)
	}
	phys, err = m.InternalToPhysical(150)
	if err != nil || phys.Float != 200 {
		t.Errorf("segment 2: InternalToPhysical(150) = %v, %v, want 200", phys, err)
	}
}

func TestTabCompuMethodStepFunction(t *testing.T) {
	m := TabCompuMethod{Anchors: []TabAnchor{{Internal: 0, Physical: 10}, {Internal: 5, Physical: 20}}}
	phys, err := m.InternalToPhysical(4)
	if err != nil || phys.Float != 10 {
		t.Errorf("InternalToPhysical(4) = %v, %v, want 10 (step function)", phys, err)
	}
	if _, err := m.InternalToPhysical(-1); err == nil {
		t.Errorf("expected error below all anchors")
	}
}

func TestTabIntpCompuMethodInterpolates(t *testing.T) {
	m := TabIntpCompuMethod{Anchors: []TabAnchor{{Internal: 0, Physical: 0}, {Internal: 10, Physical: 100}}}
	phys, err := m.InternalToPhysical(5)
	if err != nil || phys.Float != 50 {
		t.Errorf("InternalToPhysical(5) = %v, %v, want 50", phys, err)
	}
	internal, err := m.PhysicalToInternal(FloatValue(75))
	if err != nil || internal != 7.5 {
		t.Errorf("PhysicalToInternal(75) = %v, %v, want 7.5", internal, err)
	}
}
