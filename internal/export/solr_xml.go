package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"

	"xcri-import/internal/domain"
)

/*
Solr XML update document, one <doc> per presentation record:

<add>
  <doc>
    <field name="provider_title">University of Oxford</field>
    <field name="course_identifier">it-course-python</field>
    <field name="course_subject">Computing</field>
    <field name="course_subject">Programming</field>
    ...
  </doc>
</add>

Multi-valued fields repeat the <field> element.
*/

type solrAdd struct {
	XMLName xml.Name  `xml:"add"`
	Docs    []solrDoc `xml:"doc"`
}

type solrDoc struct {
	Fields []solrField `xml:"field"`
}

type solrField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// WriteSolrXML writes records as a Solr <add> document to outPath. A path
// ending in ".br" is brotli compressed.
func WriteSolrXML(outPath string, records []domain.Record) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", outPath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: close %s: %w", outPath, cerr)
		}
	}()

	if !strings.HasSuffix(outPath, ".br") {
		return EncodeSolrXML(f, records)
	}

	bw := brotli.NewWriterLevel(f, brotli.DefaultCompression)
	if err := EncodeSolrXML(bw, records); err != nil {
		return err
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("export: compress: %w", err)
	}
	return nil
}

// EncodeSolrXML writes the <add> document for records to w.
func EncodeSolrXML(w io.Writer, records []domain.Record) error {
	out := solrAdd{Docs: make([]solrDoc, 0, len(records))}
	for _, r := range records {
		out.Docs = append(out.Docs, toSolrDoc(r.Document()))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("export: write xml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: marshal xml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("export: write xml: %w", err)
	}
	return nil
}

func toSolrDoc(d domain.Document) solrDoc {
	var doc solrDoc
	for _, key := range domain.FieldOrder {
		switch v := d[key].(type) {
		case string:
			doc.Fields = append(doc.Fields, solrField{Name: key, Value: v})
		case []string:
			for _, s := range v {
				doc.Fields = append(doc.Fields, solrField{Name: key, Value: s})
			}
		}
	}
	return doc
}
