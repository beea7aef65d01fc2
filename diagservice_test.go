package odx

import "testing"

// TestMatchingRequestInPositiveResponse is spec.md §8 seed scenario 5.
func TestMatchingRequestInPositiveResponse(t *testing.T) {
	resp := &Response{Structure: Structure{ShortName: "resp", Parameters: []Parameter{
		&CodedConstParameter{base: base{shortName: "SID", bytePos: ip(0)}, DiagCodedType: u8DCT(), CodedValue: 0x34},
		&MatchingRequestParameter{base: base{shortName: "matching", bytePos: ip(1)}, RequestBytePosition: 1, ByteLength: 1},
	}}, Positive: true}
	svc := &DiagService{ShortName: "svc", PositiveResponses: []*Response{resp}}

	m, matched, err := svc.DecodeResponse([]byte{0x34, 0xAB}, []byte{0x12, 0xAB})
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if matched != resp {
		t.Errorf("DecodeResponse() matched %v, want the positive response", matched)
	}
	sid, _ := m.Get("SID")
	matching, _ := m.Get("matching")
	if sid.Int != 0x34 || len(matching.Bytes) != 1 || matching.Bytes[0] != 0xAB {
		t.Errorf("DecodeResponse() = {SID:%v matching:%v}, want {0x34 [0xAB]}", sid, matching)
	}
}

func TestDecodeResponseTriesEachCandidate(t *testing.T) {
	posResp := &Response{Structure: Structure{ShortName: "pos", Parameters: []Parameter{
		&CodedConstParameter{base: base{shortName: "SID", bytePos: ip(0)}, DiagCodedType: u8DCT(), CodedValue: 0x50},
	}}, Positive: true}
	negResp := &Response{Structure: Structure{ShortName: "neg", Parameters: []Parameter{
		&CodedConstParameter{base: base{shortName: "SID", bytePos: ip(0)}, DiagCodedType: u8DCT(), CodedValue: 0x7F},
	}}}
	svc := &DiagService{ShortName: "svc", PositiveResponses: []*Response{posResp}, NegativeResponses: []*Response{negResp}}

	_, matched, err := svc.DecodeResponse([]byte{0x7F}, nil)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if matched != negResp {
		t.Errorf("DecodeResponse() matched %v, want the negative response", matched)
	}

	if _, _, err := svc.DecodeResponse([]byte{0x00}, nil); err == nil {
		t.Errorf("expected an error when no declared response matches")
	}
}

// TestInheritanceMonotonicity is spec.md §8's "Inheritance monotonicity"
// universal property: child = parent ⊖ not_inherited ⊕ own.
func TestInheritanceMonotonicity(t *testing.T) {
	shared := &DiagService{ShortName: "shared"}
	dropped := &DiagService{ShortName: "dropped"}
	parent := &DiagLayer{ShortName: "parent", Kind: KindProtocol, OwnServices: []*DiagService{shared, dropped}}

	ownOnly := &DiagService{ShortName: "childOnly"}
	child := &DiagLayer{
		ShortName: "child",
		Kind:      KindECUVariant,
		ParentRefs: []*ParentRef{
			{Layer: parent, NotInherited: []string{"dropped"}},
		},
		OwnServices: []*DiagService{ownOnly},
	}

	flat, err := child.FlattenServices()
	if err != nil {
		t.Fatalf("FlattenServices() error = %v", err)
	}
	if _, ok := flat.Get("shared"); !ok {
		t.Errorf("expected inherited service %q to survive", "shared")
	}
	if _, ok := flat.Get("dropped"); ok {
		t.Errorf("expected not_inherited service %q to be dropped", "dropped")
	}
	if _, ok := flat.Get("childOnly"); !ok {
		t.Errorf("expected own service %q to be present", "childOnly")
	}
	if flat.Len() != 2 {
		t.Errorf("flattened service count = %d, want 2", flat.Len())
	}
}

func TestFlattenServicesOwnOverridesInherited(t *testing.T) {
	parentSvc := &DiagService{ShortName: "svc", RequestRef: RefBySNRef("parentReq")}
	parent := &DiagLayer{ShortName: "parent", Kind: KindProtocol, OwnServices: []*DiagService{parentSvc}}

	childSvc := &DiagService{ShortName: "svc", RequestRef: RefBySNRef("childReq")}
	child := &DiagLayer{
		ShortName:   "child",
		Kind:        KindECUVariant,
		ParentRefs:  []*ParentRef{{Layer: parent}},
		OwnServices: []*DiagService{childSvc},
	}

	flat, err := child.FlattenServices()
	if err != nil {
		t.Fatalf("FlattenServices() error = %v", err)
	}
	got, _ := flat.Get("svc")
	if got != childSvc {
		t.Errorf("FlattenServices() kept the parent's service, want the child's own override")
	}
}

func TestFlattenServicesDetectsCycle(t *testing.T) {
	a := &DiagLayer{ShortName: "a", Kind: KindProtocol}
	b := &DiagLayer{ShortName: "b", Kind: KindProtocol}
	a.ParentRefs = []*ParentRef{{Layer: b}}
	b.ParentRefs = []*ParentRef{{Layer: a}}

	if _, err := a.FlattenServices(); err == nil || !IsResolutionError(err) {
		t.Errorf("expected a ResolutionError for a cyclic parent chain, got %v", err)
	}
}
