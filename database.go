package odx

import (
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ArchiveEntry is one named, openable member of an Archive, per spec.md
// §6. Archive/zip I/O itself is an external collaborator; this module
// only orders and filters entries.
type ArchiveEntry interface {
	Name() string
	Open() (io.Reader, error)
}

// Archive is an opaque iterator over (entry_name, bytes) pairs, per
// spec.md §6. Entries are filtered to those whose suffix starts with
// ".odx" and processed in lexicographic order of name so resolution is
// deterministic.
type Archive interface {
	Entries() ([]ArchiveEntry, error)
}

// XMLDocument is one already-parsed ODX document, per spec.md §6.
// Unmarshalling raw XML into this shape is the host's job; this module
// never touches encoding/xml.
type XMLDocument interface {
	ModelVersion() string
	DiagLayerContainer() (*DiagLayerContainer, bool)
	ComparamSubset() (*ComparamSubset, bool)
}

// DocumentParser turns one archive entry's bytes into a parsed document.
// Supplied by the host, since XML unmarshalling is out of scope here.
type DocumentParser func(entryName string, r io.Reader) (XMLDocument, error)

// DiagLayerContainer groups the diag layers defined by one ODX document,
// per spec.md §6 ("a document contains at most one DIAG-LAYER-CONTAINER").
type DiagLayerContainer struct {
	OdxId      OdxId
	ShortName  string
	DiagLayers []*DiagLayer
}

func (c *DiagLayerContainer) collectIds(db *OdxLinkDatabase) error {
	if err := db.Add(c.OdxId, c); err != nil {
		return err
	}
	for _, l := range c.DiagLayers {
		if err := l.collectIds(db); err != nil {
			return err
		}
	}
	return nil
}

// ComparamSubset is a minimal stand-in for a communication-parameter
// subset: this spec's hard parts (§1) never require interpreting
// comparam contents, only registering/resolving the subset's own id, so
// no further structure is modeled.
type ComparamSubset struct {
	OdxId     OdxId
	ShortName string
}

func (c *ComparamSubset) collectIds(db *OdxLinkDatabase) error {
	return db.Add(c.OdxId, c)
}

func (l *DiagLayer) collectIds(db *OdxLinkDatabase) error {
	if err := db.Add(l.OdxId, l); err != nil {
		return err
	}
	for _, svc := range l.OwnServices {
		if err := db.Add(svc.OdxId, svc); err != nil {
			return err
		}
	}
	for _, r := range l.OwnRequests {
		if err := r.Structure.collectIds(db); err != nil {
			return err
		}
	}
	for _, r := range l.OwnResponses {
		if err := r.Structure.collectIds(db); err != nil {
			return err
		}
	}
	for _, d := range l.OwnDOPs {
		if err := db.Add(d.OdxId, d); err != nil {
			return err
		}
	}
	for _, f := range l.OwnEndOfPduFields {
		if err := db.Add(f.OdxId, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) collectIds(db *OdxLinkDatabase) error {
	if err := db.Add(s.OdxId, s); err != nil {
		return err
	}
	for _, p := range s.Parameters {
		if ts, ok := p.(*TableStructParameter); ok {
			for _, e := range ts.Entries {
				if err := e.Structure.collectIds(db); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Database internalizes a diagnostic database for one or more ECUs
// described by a collection of ODX documents, per spec.md §6 and
// original_source/odxtools/database.py.
type Database struct {
	diagLayerContainers *ShortNameList[*DiagLayerContainer]
	comparamSubsets     *ShortNameList[*ComparamSubset]
	diagLayers          *ShortNameList[*DiagLayer]
	odxlinks            *OdxLinkDatabase
	strictPositions     bool
}

type databaseConfig struct {
	archive         Archive
	parse           DocumentParser
	singleDoc       XMLDocument
	strictPositions bool
}

type Option func(*databaseConfig)

// WithPDXArchive configures the database to be built from every .odx*
// entry of a, parsed by parse. Mutually exclusive with WithSingleDocument
// (spec.md §6's pdx_zip).
func WithPDXArchive(a Archive, parse DocumentParser) Option {
	return func(c *databaseConfig) {
		c.archive = a
		c.parse = parse
	}
}

// WithSingleDocument configures the database to be built from exactly
// one already-parsed document. Mutually exclusive with WithPDXArchive
// (spec.md §6's odx_d_file_name).
func WithSingleDocument(doc XMLDocument) Option {
	return func(c *databaseConfig) { c.singleDoc = doc }
}

// WithStrictPositions toggles rejection of overlapping fixed parameter
// positions (default on), per spec.md §6.
func WithStrictPositions(strict bool) Option {
	return func(c *databaseConfig) { c.strictPositions = strict }
}

// NewDatabase builds a Database per the supplied options. With neither
// WithPDXArchive nor WithSingleDocument it returns an empty database;
// supplying both is a ParseError, per spec.md §6.
func NewDatabase(opts ...Option) (*Database, error) {
	cfg := &databaseConfig{strictPositions: true}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.archive != nil && cfg.singleDoc != nil {
		return nil, &ParseError{Reason: "WithPDXArchive and WithSingleDocument are mutually exclusive"}
	}

	db := &Database{
		diagLayerContainers: NewShortNameList[*DiagLayerContainer](func(c *DiagLayerContainer) string { return c.ShortName }),
		comparamSubsets:     NewShortNameList[*ComparamSubset](func(c *ComparamSubset) string { return c.ShortName }),
		strictPositions:     cfg.strictPositions,
	}

	if cfg.archive == nil && cfg.singleDoc == nil {
		db.diagLayers = NewShortNameList[*DiagLayer](func(l *DiagLayer) string { return l.ShortName })
		db.odxlinks = NewOdxLinkDatabase()
		return db, nil
	}

	var docs []XMLDocument
	if cfg.archive != nil {
		entries, err := cfg.archive.Entries()
		if err != nil {
			return nil, &ParseError{Reason: "reading archive entries: " + err.Error()}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !strings.HasPrefix(path.Ext(e.Name()), ".odx") {
				continue
			}
			r, err := e.Open()
			if err != nil {
				return nil, &ParseError{Doc: e.Name(), Reason: err.Error()}
			}
			doc, err := cfg.parse(e.Name(), r)
			if err != nil {
				return nil, &ParseError{Doc: e.Name(), Reason: err.Error()}
			}
			docs = append(docs, doc)
		}
	} else {
		docs = []XMLDocument{cfg.singleDoc}
	}

	for i, doc := range docs {
		// Compatibility shim (spec.md §9 Open Question): a MODEL-VERSION
		// below 2.2 names its subset COMPARAM-SPEC instead of
		// COMPARAM-SUBSET, but it is treated identically once parsed.
		debugModelVersion(strconv.Itoa(i), doc.ModelVersion())

		if dlc, ok := doc.DiagLayerContainer(); ok {
			db.diagLayerContainers.Set(dlc)
		}
		if subset, ok := doc.ComparamSubset(); ok {
			db.comparamSubsets.Set(subset)
		}
	}

	if err := db.finalize(); err != nil {
		return nil, err
	}
	return db, nil
}

// finalize builds the id registry (phase 1) and resolves every reference
// (phase 2), in the order spec.md §4.8 requires: comparam subsets, then
// diag-layer containers, then each diag layer ordered by kind so parents
// resolve before children.
func (db *Database) finalize() error {
	odxlinks := NewOdxLinkDatabase()

	for _, subset := range db.comparamSubsets.Items() {
		if err := subset.collectIds(odxlinks); err != nil {
			return err
		}
	}
	for _, dlc := range db.diagLayerContainers.Items() {
		if err := dlc.collectIds(odxlinks); err != nil {
			return err
		}
	}

	var allLayers []*DiagLayer
	for _, dlc := range db.diagLayerContainers.Items() {
		allLayers = append(allLayers, dlc.DiagLayers...)
	}
	sort.SliceStable(allLayers, func(i, j int) bool { return allLayers[i].Kind < allLayers[j].Kind })

	globalScope := NewScope(func(name string) (any, bool) {
		for _, l := range allLayers {
			if l.ShortName == name {
				return l, true
			}
		}
		return nil, false
	})

	for _, l := range allLayers {
		if err := l.resolveReferences(odxlinks, globalScope); err != nil {
			return err
		}
		layerScope := globalScope.Child(func(name string) (any, bool) {
			for _, d := range l.OwnDOPs {
				if d.ShortName == name {
					return d, true
				}
			}
			return nil, false
		})
		for _, r := range l.OwnRequests {
			if err := r.Structure.resolveParameterReferences(odxlinks, layerScope); err != nil {
				return err
			}
			if err := r.Structure.ValidatePositions(db.strictPositions); err != nil {
				return err
			}
		}
		for _, r := range l.OwnResponses {
			if err := r.Structure.resolveParameterReferences(odxlinks, layerScope); err != nil {
				return err
			}
			if err := r.Structure.ValidatePositions(db.strictPositions); err != nil {
				return err
			}
		}
	}
	for _, l := range allLayers {
		for _, f := range l.OwnEndOfPduFields {
			if err := f.resolveReferences(odxlinks, globalScope); err != nil {
				return err
			}
		}
	}

	db.odxlinks = odxlinks
	db.diagLayers = NewShortNameList[*DiagLayer](func(l *DiagLayer) string { return l.ShortName })
	for _, l := range allLayers {
		db.diagLayers.Set(l)
	}
	return nil
}

func (db *Database) OdxLinks() *OdxLinkDatabase { return db.odxlinks }

func (db *Database) DiagLayers() []*DiagLayer { return db.diagLayers.Items() }

func (db *Database) DiagLayerContainers() []*DiagLayerContainer { return db.diagLayerContainers.Items() }

func (db *Database) ComparamSubsets() []*ComparamSubset { return db.comparamSubsets.Items() }

// Protocols returns every diag layer of kind PROTOCOL, per
// original_source's Database.protocols property (SPEC_FULL.md §9
// supplemented feature).
func (db *Database) Protocols() []*DiagLayer {
	var out []*DiagLayer
	for _, l := range db.diagLayers.Items() {
		if l.Kind == KindProtocol {
			out = append(out, l)
		}
	}
	return out
}
