package odx

import (
	"bytes"
	"io"
	"testing"
)

type fakeEntry struct {
	name string
	data []byte
}

func (e fakeEntry) Name() string            { return e.name }
func (e fakeEntry) Open() (io.Reader, error) { return bytes.NewReader(e.data), nil }

type fakeArchive struct {
	entries []ArchiveEntry
}

func (a fakeArchive) Entries() ([]ArchiveEntry, error) { return a.entries, nil }

type fakeDoc struct {
	version string
	dlc     *DiagLayerContainer
	subset  *ComparamSubset
}

func (d fakeDoc) ModelVersion() string { return d.version }
func (d fakeDoc) DiagLayerContainer() (*DiagLayerContainer, bool) {
	if d.dlc == nil {
		return nil, false
	}
	return d.dlc, true
}
func (d fakeDoc) ComparamSubset() (*ComparamSubset, bool) {
	if d.subset == nil {
		return nil, false
	}
	return d.subset, true
}

func parseFakeDoc(name string, r io.Reader) (XMLDocument, error) {
	raw, _ := io.ReadAll(r)
	if bytes.Equal(raw, []byte("subset")) {
		return fakeDoc{version: "2.2.0", subset: &ComparamSubset{OdxId: NewOdxId("CPS"), ShortName: "cps"}}, nil
	}
	dop := &DataObjectProperty{OdxId: NewOdxId("DOP1"), ShortName: "dop1",
		DiagCodedType: u8DCT(), CompuMethod: IdentityCompuMethod{Base: AUint32}}
	protocol := &DiagLayer{OdxId: NewOdxId("PROTO"), ShortName: "proto", Kind: KindProtocol,
		OwnServices: []*DiagService{{OdxId: NewOdxId("SVC1"), ShortName: "svc1", RequestRef: RefBySNRef("svc1Req")}},
		OwnDOPs:     []*DataObjectProperty{dop},
		OwnRequests: []*Request{{Structure{OdxId: NewOdxId("REQ1"), ShortName: "svc1Req", Parameters: []Parameter{
			&CodedConstParameter{base: base{shortName: "SID", bytePos: ip(0)}, DiagCodedType: u8DCT(), CodedValue: 0x10},
			&ValueParameter{base: base{shortName: "param1", bytePos: ip(1)}, DOPRef: RefBySNRef("dop1")},
		}}}},
	}
	variant := &DiagLayer{OdxId: NewOdxId("VARIANT"), ShortName: "variant", Kind: KindECUVariant,
		ParentRefs: []*ParentRef{{LayerRef: RefBySNRef("proto")}},
	}
	dlc := &DiagLayerContainer{OdxId: NewOdxId("DLC"), ShortName: "dlc", DiagLayers: []*DiagLayer{protocol, variant}}
	return fakeDoc{version: "2.2.0", dlc: dlc}, nil
}

func TestNewDatabaseEmpty(t *testing.T) {
	db, err := NewDatabase()
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	if len(db.DiagLayers()) != 0 {
		t.Errorf("empty database has layers: %v", db.DiagLayers())
	}
}

func TestNewDatabaseRejectsBothSources(t *testing.T) {
	_, err := NewDatabase(WithPDXArchive(fakeArchive{}, parseFakeDoc), WithSingleDocument(fakeDoc{}))
	if err == nil {
		t.Errorf("expected an error when both sources are configured")
	}
}

func TestNewDatabaseFromArchive(t *testing.T) {
	archive := fakeArchive{entries: []ArchiveEntry{
		fakeEntry{name: "b-layers.odx-d", data: []byte("layers")},
		fakeEntry{name: "a-comparams.odx-c", data: []byte("subset")},
		fakeEntry{name: "ignored.txt", data: []byte("ignored")},
	}}
	db, err := NewDatabase(WithPDXArchive(archive, parseFakeDoc))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}

	if len(db.ComparamSubsets()) != 1 {
		t.Fatalf("ComparamSubsets() = %v, want 1", db.ComparamSubsets())
	}

	protocols := db.Protocols()
	if len(protocols) != 1 || protocols[0].ShortName != "proto" {
		t.Fatalf("Protocols() = %v, want [proto]", protocols)
	}

	variant, ok := db.diagLayers.Get("variant")
	if !ok {
		t.Fatalf("variant layer not found")
	}
	if variant.ParentRefs[0].Layer == nil || variant.ParentRefs[0].Layer.ShortName != "proto" {
		t.Errorf("variant's parent ref did not resolve to the protocol layer")
	}

	flat, err := variant.FlattenServices()
	if err != nil {
		t.Fatalf("FlattenServices() error = %v", err)
	}
	if _, ok := flat.Get("svc1"); !ok {
		t.Errorf("variant did not inherit svc1 from its parent protocol")
	}

	proto, _ := db.diagLayers.Get("proto")
	svc, _ := proto.flattenedServices.Get("svc1")
	if svc.Request == nil || svc.Request.ShortName != "svc1Req" {
		t.Errorf("service's request reference did not resolve")
	}
	valueParam := svc.Request.Parameters[1].(*ValueParameter)
	if valueParam.DOP == nil || valueParam.DOP.ShortName != "dop1" {
		t.Errorf("value parameter's DOP reference did not resolve, got %v", valueParam.DOP)
	}
}

func TestNewDatabaseFromSingleDocument(t *testing.T) {
	doc, _ := parseFakeDoc("single", bytes.NewReader([]byte("layers")))
	db, err := NewDatabase(WithSingleDocument(doc))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	if len(db.DiagLayerContainers()) != 1 {
		t.Errorf("DiagLayerContainers() = %v, want 1", db.DiagLayerContainers())
	}
}
