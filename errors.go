package odx

import (
	"errors"
	"fmt"
)

// ErrParse, ErrResolution, ErrDecode, ErrEncode and ErrInheritance are
// sentinels each error kind's Is method matches against, so callers can
// branch with errors.Is(err, odx.ErrDecode) instead of a type assertion.
var (
	ErrParse       = errors.New("parse error")
	ErrResolution  = errors.New("resolution error")
	ErrDecode      = errors.New("decode error")
	ErrEncode      = errors.New("encode error")
	ErrInheritance = errors.New("inheritance error")
)

// ParseError reports an XML tree that is structurally invalid or missing a
// required attribute. Unmarshalling is the host's job; NewDatabase returns
// one when both input sources are configured, when the archive's entries
// cannot be listed or opened, or when the host's DocumentParser fails.
type ParseError struct {
	Doc     string
	Element string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s: %s", e.Doc, e.Element, e.Reason)
}

func (e *ParseError) Kind() string { return "parse" }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func IsParseError(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// ResolutionError reports a duplicate id, an unresolved reference, a
// cyclic parent chain, or (with strict positions) overlapping fixed
// parameter positions found while building the link database.
type ResolutionError struct {
	SubKind string // "duplicate", "unresolved", "cycle", "overlap"
	Id      string
	Detail  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error (%s): %s: %s", e.SubKind, e.Id, e.Detail)
}

func (e *ResolutionError) Kind() string { return "resolution" }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

func IsResolutionError(err error) bool {
	_, ok := err.(*ResolutionError)
	return ok
}

// DecodeError reports buffer truncation, a coded-const mismatch, a missing
// length parameter, or a value outside physical bounds during decode.
type DecodeError struct {
	ShortName string
	Offset    Cursor
	Reason    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at %s (offset %s): %s", e.ShortName, e.Offset, e.Reason)
}

func (e *DecodeError) Kind() string { return "decode" }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func IsDecodeError(err error) bool {
	_, ok := err.(*DecodeError)
	return ok
}

// EncodeError reports a missing required parameter, an out-of-bounds value,
// or a value that cannot be represented in the declared bit width.
type EncodeError struct {
	ShortName string
	Reason    string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode error at %s: %s", e.ShortName, e.Reason)
}

func (e *EncodeError) Kind() string { return "encode" }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

func IsEncodeError(err error) bool {
	_, ok := err.(*EncodeError)
	return ok
}

// InheritanceError reports a conflicting override or a rename target that
// collides with an existing short name during layer flattening.
type InheritanceError struct {
	Layer     string
	ShortName string
	Reason    string
}

func (e *InheritanceError) Error() string {
	return fmt.Sprintf("inheritance error in layer %s for %s: %s", e.Layer, e.ShortName, e.Reason)
}

func (e *InheritanceError) Kind() string { return "inheritance" }

func (e *InheritanceError) Is(target error) bool { return target == ErrInheritance }

func IsInheritanceError(err error) bool {
	_, ok := err.(*InheritanceError)
	return ok
}
