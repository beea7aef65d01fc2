package odx

import "fmt"

// OdxLinkDatabase maps OdxId to the object that owns it. Phase 1 of
// resolution populates it; phase 2 consults it. Duplicate ids abort
// construction, per spec.md §3/§4.8.
type OdxLinkDatabase struct {
	byId map[string]any
	ids  map[string]OdxId // for error messages
}

func NewOdxLinkDatabase() *OdxLinkDatabase {
	return &OdxLinkDatabase{byId: make(map[string]any), ids: make(map[string]OdxId)}
}

// Add registers obj under id. Returns a ResolutionError{duplicate} if the
// id is already registered, whichever object it was registered for.
func (db *OdxLinkDatabase) Add(id OdxId, obj any) error {
	k := id.key()
	if _, exists := db.byId[k]; exists {
		return &ResolutionError{SubKind: "duplicate", Id: id.String(), Detail: "id already registered"}
	}
	db.byId[k] = obj
	db.ids[k] = id
	return nil
}

// Merge folds other's entries into db, failing on any id collision.
func (db *OdxLinkDatabase) Merge(other *OdxLinkDatabase) error {
	for k, obj := range other.byId {
		if _, exists := db.byId[k]; exists {
			return &ResolutionError{SubKind: "duplicate", Id: other.ids[k].String(), Detail: "id already registered"}
		}
		db.byId[k] = obj
		db.ids[k] = other.ids[k]
	}
	return nil
}

func (db *OdxLinkDatabase) lookup(id OdxId) (any, bool) {
	obj, ok := db.byId[id.key()]
	return obj, ok
}

// Scope resolves by-short-name references relative to whatever container
// is currently being walked (a layer, a structure, a DOP list). Parent
// chains to an enclosing scope so an snref can fall through to an outer
// container when not found locally, matching spec.md §4.8's "enclosing
// scope provided by the walker".
type Scope struct {
	parent *Scope
	lookup func(name string) (any, bool)
}

func NewScope(lookup func(name string) (any, bool)) *Scope {
	return &Scope{lookup: lookup}
}

func (s *Scope) Child(lookup func(name string) (any, bool)) *Scope {
	return &Scope{parent: s, lookup: lookup}
}

func (s *Scope) resolveShortName(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.lookup == nil {
			continue
		}
		if obj, ok := cur.lookup(name); ok {
			return obj, true
		}
	}
	return nil, false
}

// Resolve dereferences ref against db (for RefByID) or scope (for
// RefByShortName), type-asserting the result to T. Missing references
// abort with ResolutionError{unresolved}, per spec.md §4.8.
func Resolve[T any](db *OdxLinkDatabase, scope *Scope, ref OdxRef) (T, error) {
	var zero T
	var raw any
	var ok bool
	var what string
	switch ref.Kind {
	case RefByID:
		raw, ok = db.lookup(ref.Id)
		what = ref.Id.String()
	case RefByShortName:
		if scope == nil {
			return zero, &ResolutionError{SubKind: "unresolved", Id: ref.Name, Detail: "snref outside any scope"}
		}
		raw, ok = scope.resolveShortName(ref.Name)
		what = ref.Name
	default:
		return zero, fmt.Errorf("unknown reference kind %d", ref.Kind)
	}
	if !ok {
		return zero, &ResolutionError{SubKind: "unresolved", Id: what, Detail: "reference did not resolve"}
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, &ResolutionError{SubKind: "unresolved", Id: what, Detail: fmt.Sprintf("resolved object has wrong type %T", raw)}
	}
	return typed, nil
}

// Referencing is implemented by any object that must bind its references
// during resolution phase 2.
type Referencing interface {
	resolveReferences(db *OdxLinkDatabase, scope *Scope) error
}
