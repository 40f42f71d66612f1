package xcri

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Fragment is the raw, untyped capture for one presentation: accumulator key
// ("course_title", "presentation_venue_identifier", ...) to the values seen,
// in document order.
type Fragment map[string][]string

// First returns the first value captured for key.
func (f Fragment) First(key string) (string, bool) {
	v := f[key]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// SyntaxError is returned when the feed is not well-formed XML. It aborts the run.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("xcri: malformed feed at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("xcri: malformed feed: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

var errNoRoot = errors.New("no root element")

// Parser turns an XCRI feed into one Fragment per presentation.
type Parser struct {
	Logger *slog.Logger
}

// Parse reads r incrementally until the end of the document. Every call owns
// its own state, so a Parser may be shared.
func (p Parser) Parse(r io.Reader) ([]Fragment, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := xml.NewDecoder(r)
	d.CharsetReader = charsetReader
	a := newAutomaton()
	sawRoot := false

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return nil, &SyntaxError{Line: se.Line, Err: err}
			}
			return nil, fmt.Errorf("xcri: read feed: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			a.enter(t)
		case xml.EndElement:
			a.leave()
		case xml.CharData:
			a.text(t)
		}
	}

	if !sawRoot {
		line, _ := d.InputPos()
		return nil, &SyntaxError{Line: line, Err: errNoRoot}
	}

	logger.Debug("parsed feed", "presentations", len(a.out))
	return a.out, nil
}

type openScope struct {
	scope Scope
	depth int
}

// automaton is the per-run parsing state. acc belongs to the presentation
// being assembled and is handed off, not copied, when it closes.
type automaton struct {
	depth  int
	scopes []openScope

	inVenue    bool
	venueDepth int

	active      string
	activeDepth int
	activeMixed bool
	buf         strings.Builder

	// muteDepth is the depth of an attribute-captured element whose text
	// must not reach the active buffer; 0 when none.
	muteDepth int

	acc Fragment
	out []Fragment
}

func newAutomaton() *automaton {
	return &automaton{acc: Fragment{}}
}

func (a *automaton) scope() Scope {
	if len(a.scopes) == 0 {
		return ScopeNone
	}
	return a.scopes[len(a.scopes)-1].scope
}

func (a *automaton) table() Table {
	if a.inVenue {
		return VenueTable
	}
	return ScopeTable
}

func (a *automaton) key(local string) string {
	if a.inVenue {
		return string(ScopePresentation) + "_" + string(ScopeVenue) + "_" + local
	}
	return string(a.scope()) + "_" + local
}

func (a *automaton) enter(el xml.StartElement) {
	a.depth++
	t := a.table()

	if c, ok := t[ScopeNone][el.Name]; ok {
		a.scopes = append(a.scopes, openScope{scope: c.Scope, depth: a.depth})
		return
	}

	c, ok := t[a.scope()][el.Name]
	if !ok {
		return
	}

	switch c.Kind {
	case CaptureVenue:
		a.inVenue = true
		a.venueDepth = a.depth
	case CaptureText:
		a.active = a.key(el.Name.Local)
		a.activeDepth = a.depth
		a.activeMixed = c.Mixed
		a.buf.Reset()
	case CaptureAttr:
		key := a.key(el.Name.Local)
		if a.active != "" && a.muteDepth == 0 {
			a.muteDepth = a.depth
		}
		for _, at := range el.Attr {
			if at.Name.Local == c.Attr {
				a.acc[key] = []string{at.Value}
				break
			}
		}
	}
}

func (a *automaton) text(b []byte) {
	if a.active != "" && a.muteDepth == 0 {
		a.buf.Write(b)
	}
}

func (a *automaton) leave() {
	if a.muteDepth == a.depth {
		a.muteDepth = 0
	}

	if a.active != "" {
		closing := a.depth == a.activeDepth
		raw := a.buf.String()
		switch v := strings.TrimSpace(raw); {
		case v == "":
			// whitespace between children of mixed content separates words
			if !a.activeMixed || closing {
				a.buf.Reset()
			}
		case a.activeMixed:
			a.acc[a.active] = append(a.acc[a.active], raw)
			a.buf.Reset()
		default:
			a.acc[a.active] = append(a.acc[a.active], v)
			a.buf.Reset()
		}
		if closing {
			a.active = ""
			a.activeMixed = false
		}
	}

	if a.inVenue && a.depth == a.venueDepth {
		a.inVenue = false
	}

	if n := len(a.scopes); n > 0 && a.scopes[n-1].depth == a.depth {
		closed := a.scopes[n-1].scope
		a.scopes = a.scopes[:n-1]
		if closed != ScopeVenue {
			a.closeScope(closed)
		}
	}

	a.depth--
}

// closeScope runs when a provider, course or presentation element ends.
func (a *automaton) closeScope(s Scope) {
	if s == ScopePresentation {
		done := a.acc
		a.acc = Fragment{}
		for k, v := range done {
			if !strings.HasPrefix(k, string(ScopePresentation)+"_") {
				a.acc[k] = append([]string(nil), v...)
			}
		}
		a.out = append(a.out, done)
	}

	for _, k := range ScopeTable.Keys(s, string(s)) {
		delete(a.acc, k)
	}
	if s == ScopePresentation {
		for _, k := range VenueTable.Keys(ScopeVenue, string(ScopePresentation)+"_"+string(ScopeVenue)) {
			delete(a.acc, k)
		}
	}
}
