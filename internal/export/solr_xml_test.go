package export

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"xcri-import/internal/domain"
)

func testRecords() []domain.Record {
	start := time.Date(2008, 1, 1, 9, 30, 0, 0, time.UTC)
	return []domain.Record{
		{
			ProviderTitle:  "University of Oxford",
			CourseTitle:    "Python & Friends",
			CourseID:       "it-course-python",
			CourseSubjects: []string{"Computing", "Programming"},
			PresentationID: "it-presentation-1",
			Start:          &start,
			VenueID:        "oxpoints:12345",
		},
		{
			ProviderTitle:  "University of Oxford",
			CourseTitle:    "Python & Friends",
			CourseID:       "it-course-python",
			PresentationID: "it-presentation-2",
		},
	}
}

type parsedAdd struct {
	Docs []struct {
		Fields []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"field"`
	} `xml:"doc"`
}

func TestEncodeSolrXML(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeSolrXML(&buf, testRecords()); err != nil {
		t.Fatalf("EncodeSolrXML() error = %v", err)
	}
	xmlContent := buf.String()

	if !strings.HasPrefix(xmlContent, xml.Header) {
		t.Error("XML header is missing")
	}
	if !strings.Contains(xmlContent, "Python &amp; Friends") {
		t.Error("Expected escaped course title")
	}

	var got parsedAdd
	if err := xml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Generated XML is invalid: %v", err)
	}
	if len(got.Docs) != 2 {
		t.Fatalf("Expected 2 docs, got %d", len(got.Docs))
	}

	first := got.Docs[0].Fields
	if first[0].Name != domain.FieldProviderTitle {
		t.Errorf("Expected fields in export order, first is %q", first[0].Name)
	}

	var subjects []string
	values := map[string]string{}
	for _, f := range first {
		if f.Name == domain.FieldCourseSubject {
			subjects = append(subjects, f.Value)
			continue
		}
		values[f.Name] = f.Value
	}
	if len(subjects) != 2 || subjects[0] != "Computing" || subjects[1] != "Programming" {
		t.Errorf("Expected repeated subject fields, got %v", subjects)
	}
	if values[domain.FieldPresentationStart] != "2008-01-01T09:30:00Z" {
		t.Errorf("Unexpected start %q", values[domain.FieldPresentationStart])
	}
	if values[domain.FieldPresentationVenueID] != "oxpoints:12345" {
		t.Errorf("Unexpected venue %q", values[domain.FieldPresentationVenueID])
	}

	for _, f := range got.Docs[1].Fields {
		if f.Name == domain.FieldPresentationStart || f.Name == domain.FieldCourseDescription {
			t.Errorf("Expected empty optional field %q to be omitted", f.Name)
		}
	}
}

func TestWriteSolrXML(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "courses.xml")
	if err := WriteSolrXML(plain, testRecords()); err != nil {
		t.Fatalf("WriteSolrXML() error = %v", err)
	}
	content, err := os.ReadFile(plain)
	if err != nil {
		t.Fatalf("Failed to read XML file: %v", err)
	}
	if !strings.Contains(string(content), `<field name="presentation_identifier">it-presentation-2</field>`) {
		t.Error("Expected presentation identifier field")
	}

	packed := filepath.Join(dir, "courses.xml.br")
	if err := WriteSolrXML(packed, testRecords()); err != nil {
		t.Fatalf("WriteSolrXML(.br) error = %v", err)
	}
	f, err := os.Open(packed)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := io.ReadAll(brotli.NewReader(f))
	if err != nil {
		t.Fatalf("Failed to decompress: %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Error("Expected compressed export to decode to the plain export")
	}
}

func TestWriteSolrXMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeSolrXML(&buf, nil); err != nil {
		t.Fatalf("EncodeSolrXML() error = %v", err)
	}
	if !strings.Contains(buf.String(), "<add></add>") {
		t.Errorf("Expected empty add element, got %q", buf.String())
	}
}

func TestWriteSolrXMLBadPath(t *testing.T) {
	err := WriteSolrXML(filepath.Join(t.TempDir(), "missing", "courses.xml"), testRecords())
	if err == nil || !strings.Contains(err.Error(), "export: create") {
		t.Errorf("Expected create error, got %v", err)
	}
}
