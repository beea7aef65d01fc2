package odx

import (
	"fmt"
	"sort"
)

// DiagService bundles a request with its positive and negative
// responses, per spec.md §4.6.
type DiagService struct {
	OdxId     OdxId
	ShortName string

	RequestRef OdxRef
	Request    *Request

	PositiveResponseRefs []OdxRef
	PositiveResponses    []*Response
	NegativeResponseRefs []OdxRef
	NegativeResponses    []*Response
}

func (svc *DiagService) resolveReferences(db *OdxLinkDatabase, scope *Scope) error {
	req, err := Resolve[*Request](db, scope, svc.RequestRef)
	if err != nil {
		return err
	}
	svc.Request = req
	svc.PositiveResponses = svc.PositiveResponses[:0]
	for _, ref := range svc.PositiveResponseRefs {
		r, err := Resolve[*Response](db, scope, ref)
		if err != nil {
			return err
		}
		svc.PositiveResponses = append(svc.PositiveResponses, r)
	}
	svc.NegativeResponses = svc.NegativeResponses[:0]
	for _, ref := range svc.NegativeResponseRefs {
		r, err := Resolve[*Response](db, scope, ref)
		if err != nil {
			return err
		}
		svc.NegativeResponses = append(svc.NegativeResponses, r)
	}
	return nil
}

// EncodeRequest encodes values through this service's request structure.
func (svc *DiagService) EncodeRequest(values *ParamMap) ([]byte, error) {
	if svc.Request == nil {
		return nil, &EncodeError{ShortName: svc.ShortName, Reason: "service has no resolved request"}
	}
	return svc.Request.Encode(values)
}

// DecodeResponse decodes buf against whichever of this service's
// positive/negative responses accepts it (coded-const/physical-constant
// mismatches are tried in turn), passing requestBytes through for any
// MatchingRequest parameters.
func (svc *DiagService) DecodeResponse(buf []byte, requestBytes []byte) (*ParamMap, *Response, error) {
	var lastErr error
	for _, r := range append(append([]*Response{}, svc.PositiveResponses...), svc.NegativeResponses...) {
		m, err := r.Decode(buf, requestBytes)
		if err == nil {
			return m, r, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &DecodeError{ShortName: svc.ShortName, Reason: "service declares no responses"}
	}
	return nil, nil, lastErr
}

// DiagLayerKind orders how layers inherit from one another, per spec.md
// §3/§4.8.
type DiagLayerKind int

const (
	KindProtocol DiagLayerKind = iota
	KindFunctionalGroup
	KindBaseVariant
	KindECUVariant
	KindECUSharedData
)

func (k DiagLayerKind) String() string {
	switch k {
	case KindProtocol:
		return "PROTOCOL"
	case KindFunctionalGroup:
		return "FUNCTIONAL_GROUP"
	case KindBaseVariant:
		return "BASE_VARIANT"
	case KindECUVariant:
		return "ECU_VARIANT"
	case KindECUSharedData:
		return "ECU_SHARED_DATA"
	default:
		return fmt.Sprintf("DiagLayerKind(%d)", int(k))
	}
}

// ParentRef names one parent layer plus the per-name rename and
// not-inherited lists applied to that parent's contributions, per
// spec.md §3.
type ParentRef struct {
	LayerRef     OdxRef
	Layer        *DiagLayer // resolved
	NotInherited []string
	Renames      map[string]string // parent short name -> child-visible short name
}

// DiagLayer holds services, requests, responses, and the data dictionary
// for one PROTOCOL/FUNCTIONAL_GROUP/BASE_VARIANT/ECU_VARIANT/
// ECU_SHARED_DATA layer, per spec.md §3/§4.6.
type DiagLayer struct {
	OdxId     OdxId
	ShortName string
	Kind      DiagLayerKind

	ParentRefs []*ParentRef

	OwnServices       []*DiagService
	OwnDOPs           []*DataObjectProperty
	OwnRequests       []*Request
	OwnResponses      []*Response
	OwnEndOfPduFields []*EndOfPduField

	flattenedServices *ShortNameList[*DiagService]
	flattening        bool
	trie              *TrieNode
}

func (l *DiagLayer) resolveReferences(db *OdxLinkDatabase, scope *Scope) error {
	childScope := scope.Child(func(name string) (any, bool) {
		for _, svc := range l.OwnServices {
			if svc.ShortName == name {
				return svc, true
			}
		}
		for _, r := range l.OwnRequests {
			if r.ShortName == name {
				return r, true
			}
		}
		for _, r := range l.OwnResponses {
			if r.ShortName == name {
				return r, true
			}
		}
		for _, d := range l.OwnDOPs {
			if d.ShortName == name {
				return d, true
			}
		}
		return nil, false
	})
	for _, pr := range l.ParentRefs {
		layer, err := Resolve[*DiagLayer](db, scope, pr.LayerRef)
		if err != nil {
			return err
		}
		pr.Layer = layer
	}
	for _, svc := range l.OwnServices {
		if err := svc.resolveReferences(db, childScope); err != nil {
			return err
		}
	}
	return nil
}

// FlattenServices computes the inherited+own service set for l, per
// spec.md §4.6: depth-first over parent_refs (topologically ordered,
// cycle aborts), applying rename/not-inherited per parent, with the
// child's own entries overriding inherited ones of equal short name. The
// result is memoized per layer.
func (l *DiagLayer) FlattenServices() (*ShortNameList[*DiagService], error) {
	if l.flattenedServices != nil {
		return l.flattenedServices, nil
	}
	if l.flattening {
		return nil, &ResolutionError{SubKind: "cycle", Id: l.ShortName, Detail: "cyclic parent_refs chain"}
	}
	l.flattening = true
	defer func() { l.flattening = false }()

	result := NewShortNameList[*DiagService](func(s *DiagService) string { return s.ShortName })

	parents := append([]*ParentRef{}, l.ParentRefs...)
	sort.SliceStable(parents, func(i, j int) bool {
		return parents[i].Layer.Kind < parents[j].Layer.Kind
	})

	for _, pr := range parents {
		parentFlat, err := pr.Layer.FlattenServices()
		if err != nil {
			return nil, err
		}
		for _, svc := range parentFlat.Items() {
			name := svc.ShortName
			if containsName(pr.NotInherited, name) {
				continue
			}
			if renamed, ok := pr.Renames[name]; ok {
				warnRename(l.ShortName, name, renamed)
				name = renamed
			}
			if existing, ok := result.Get(name); ok && existing.ShortName != svc.ShortName {
				return nil, &InheritanceError{Layer: l.ShortName, ShortName: name, Reason: "rename target collides with an already-inherited service"}
			}
			result.SetNamed(name, svc)
		}
	}

	for _, svc := range l.OwnServices {
		result.SetNamed(svc.ShortName, svc)
	}

	l.flattenedServices = result
	return result, nil
}

func containsName(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

// Identify routes an incoming PDU to every candidate service whose
// request prefix matches, building (and caching) the prefix tree on
// first use, per spec.md §4.7/§4.9.
func (l *DiagLayer) Identify(pdu []byte) ([]*DiagService, error) {
	flat, err := l.FlattenServices()
	if err != nil {
		return nil, err
	}
	if l.trie == nil {
		warnTrieRebuild(l.ShortName, len(flat.Items()))
		l.trie = BuildTrie(flat.Items())
	}
	return l.trie.Identify(pdu), nil
}

// InvalidateTrie drops the cached prefix tree and l's memoized flattened
// service set so both are rebuilt on the next Identify call, e.g. after
// OwnServices changes. Layers that inherit from l keep their own memoized
// sets.
func (l *DiagLayer) InvalidateTrie() {
	l.trie = nil
	l.flattenedServices = nil
}
