package odx

import "fmt"

// DocFragment names one document an id or reference is scoped by: its
// document name and its ODX document type (e.g. "CONTAINER", "LAYER",
// "COMPARAM-SUBSET"). Two OdxIds are equal only if their fragment lists
// agree, per spec.md §3.
type DocFragment struct {
	DocName string
	DocType string
}

// OdxId is a local name scoped by an ordered list of document fragments.
type OdxId struct {
	LocalName string
	Fragments []DocFragment
}

func NewOdxId(localName string, fragments ...DocFragment) OdxId {
	return OdxId{LocalName: localName, Fragments: fragments}
}

func (id OdxId) Equal(other OdxId) bool {
	if id.LocalName != other.LocalName {
		return false
	}
	if len(id.Fragments) != len(other.Fragments) {
		return false
	}
	for i := range id.Fragments {
		if id.Fragments[i] != other.Fragments[i] {
			return false
		}
	}
	return true
}

// key is a comparable representation usable as a map key.
func (id OdxId) key() string {
	s := id.LocalName
	for _, f := range id.Fragments {
		s += "\x00" + f.DocName + "\x01" + f.DocType
	}
	return s
}

func (id OdxId) String() string {
	return fmt.Sprintf("%s%v", id.LocalName, id.Fragments)
}

// RefKind selects how an OdxRef resolves.
type RefKind int

const (
	RefByID RefKind = iota
	RefByShortName
)

// OdxRef is an id plus a resolution mode, per spec.md §3. A by-short-name
// reference (snref) resolves relative to a containing scope supplied by
// the resolver's walker rather than the global id map.
type OdxRef struct {
	Kind RefKind
	Id   OdxId  // meaningful when Kind == RefByID
	Name string // meaningful when Kind == RefByShortName
}

func RefByIDOf(id OdxId) OdxRef {
	return OdxRef{Kind: RefByID, Id: id}
}

func RefBySNRef(name string) OdxRef {
	return OdxRef{Kind: RefByShortName, Name: name}
}
