package xcri

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// charsetReader decodes feeds that declare a non UTF-8 encoding
// (ISO-8859-1, windows-1252, us-ascii, ...). Labels resolve the way browsers
// do first, then through the IANA registry.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if enc, err := htmlindex.Get(label); err == nil {
		return enc.NewDecoder().Reader(input), nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("xcri: unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
