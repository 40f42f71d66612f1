package xcri

import "encoding/xml"

// Namespaces used by the XCRI-CAP 1.2 feed and its Oxford extensions.
const (
	NSXCRI  = "http://xcri.org/profiles/1.2/catalog"
	NSDC    = "http://purl.org/dc/elements/1.1/"
	NSMLO   = "http://purl.org/net/mlo"
	NSOXCAP = "http://purl.ox.ac.uk/oxcap/ns/"
)

// Scope is the logical nesting context while parsing.
type Scope string

const (
	ScopeNone         Scope = ""
	ScopeProvider     Scope = "provider"
	ScopeCourse       Scope = "course"
	ScopePresentation Scope = "presentation"
	ScopeVenue        Scope = "venue"
)

// CaptureKind says what the parser does when it enters an element.
type CaptureKind int

const (
	CaptureText  CaptureKind = iota // element text becomes a value
	CaptureAttr                     // value of Capture.Attr becomes the sole value
	CaptureScope                    // element opens Capture.Scope
	CaptureVenue                    // element opens the venue sub-block
)

// Capture is the behavior configured for one element.
type Capture struct {
	Kind  CaptureKind
	Attr  string // local attribute name, CaptureAttr only
	Scope Scope  // CaptureScope only
	Mixed bool   // CaptureText only: markup content, whitespace between children kept
}

// Table maps a scope to the elements recognized inside it. The entry under
// ScopeNone lists the scope markers themselves.
type Table map[Scope]map[xml.Name]Capture

// date/time values live in the dtf attribute; the element text is a
// human-readable rendering only.
const dtfAttr = "dtf"

func textField() Capture            { return Capture{Kind: CaptureText} }
func mixedField() Capture           { return Capture{Kind: CaptureText, Mixed: true} }
func attrField(name string) Capture { return Capture{Kind: CaptureAttr, Attr: name} }
func scopeMarker(s Scope) Capture   { return Capture{Kind: CaptureScope, Scope: s} }

// ScopeTable covers provider, course and presentation elements.
var ScopeTable = Table{
	ScopeNone: {
		{Space: NSXCRI, Local: "provider"}:     scopeMarker(ScopeProvider),
		{Space: NSXCRI, Local: "course"}:       scopeMarker(ScopeCourse),
		{Space: NSXCRI, Local: "presentation"}: scopeMarker(ScopePresentation),
	},
	ScopeProvider: {
		{Space: NSDC, Local: "title"}:      textField(),
		{Space: NSDC, Local: "identifier"}: textField(),
	},
	ScopeCourse: {
		{Space: NSDC, Local: "title"}:       textField(),
		{Space: NSDC, Local: "description"}: mixedField(),
		{Space: NSDC, Local: "subject"}:     textField(),
		{Space: NSDC, Local: "identifier"}:  textField(),
	},
	ScopePresentation: {
		{Space: NSDC, Local: "identifier"}:          textField(),
		{Space: NSOXCAP, Local: "bookingEndpoint"}:  textField(),
		{Space: NSOXCAP, Local: "memberApplyTo"}:    textField(),
		{Space: NSXCRI, Local: "attendanceMode"}:    textField(),
		{Space: NSXCRI, Local: "attendancePattern"}: textField(),
		{Space: NSMLO, Local: "start"}:              attrField(dtfAttr),
		{Space: NSXCRI, Local: "end"}:               attrField(dtfAttr),
		{Space: NSXCRI, Local: "applyFrom"}:         attrField(dtfAttr),
		{Space: NSXCRI, Local: "applyUntil"}:        attrField(dtfAttr),
		{Space: NSXCRI, Local: "venue"}:             {Kind: CaptureVenue},
	},
}

// VenueTable applies inside <xcri:venue>. The feed nests venue data as a
// provider-shaped block, so its identifier has the same element shape as a
// provider identifier; it must never be resolved through ScopeTable.
var VenueTable = Table{
	ScopeNone: {
		{Space: NSXCRI, Local: "provider"}: scopeMarker(ScopeVenue),
	},
	ScopeVenue: {
		{Space: NSDC, Local: "identifier"}: textField(),
		{Space: NSDC, Local: "title"}:      textField(),
	},
}

// Keys returns the accumulator keys the table can produce for s, using prefix
// as the key prefix ("provider", "presentation_venue", ...).
func (t Table) Keys(s Scope, prefix string) []string {
	fields := t[s]
	out := make([]string, 0, len(fields))
	for name, c := range fields {
		if c.Kind == CaptureText || c.Kind == CaptureAttr {
			out = append(out, prefix+"_"+name.Local)
		}
	}
	return out
}
