package xcri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"xcri-import/internal/domain"
)

const (
	DefaultIdentifierBase = "http://course.data.ox.ac.uk/id/"
	DefaultVenueBase      = "http://oxpoints.oucs.ox.ac.uk/id/"

	venuePrefix = "oxpoints:"
)

// DefaultExcludedSubjects are catalogue-wide tags that carry no subject meaning.
var DefaultExcludedSubjects = []string{"Graduate Training", "Other", "Unknown"}

var (
	ErrMissingField = errors.New("missing mandatory field")
	ErrNoIdentifier = errors.New("no URI identifier")
	ErrBadDate      = errors.New("unparsable date")
)

// Rejection is a fragment that could not become a record, with the reason.
type Rejection struct {
	Fragment Fragment
	Reason   error
}

// Normalizer turns fragments into records. The zero value uses the defaults.
type Normalizer struct {
	IdentifierBase   string
	VenueBase        string
	ExcludedSubjects []string
}

// NormalizeAll normalizes every fragment. A fragment that fails is returned in
// the rejection list and never stops the others.
func (n Normalizer) NormalizeAll(frags []Fragment) ([]domain.Record, []Rejection) {
	records := make([]domain.Record, 0, len(frags))
	var rejected []Rejection
	for _, f := range frags {
		r, err := n.Normalize(f)
		if err != nil {
			rejected = append(rejected, Rejection{Fragment: f, Reason: err})
			continue
		}
		records = append(records, r)
	}
	return records, rejected
}

// Normalize applies the per-field rules to one fragment.
func (n Normalizer) Normalize(f Fragment) (domain.Record, error) {
	var r domain.Record
	var err error

	if r.ProviderTitle, err = required(f, domain.FieldProviderTitle); err != nil {
		return domain.Record{}, err
	}
	if r.CourseTitle, err = required(f, domain.FieldCourseTitle); err != nil {
		return domain.Record{}, err
	}
	if r.CourseID, err = n.identifier(f, domain.FieldCourseIdentifier); err != nil {
		return domain.Record{}, err
	}
	if r.PresentationID, err = n.identifier(f, domain.FieldPresentationIdentifier); err != nil {
		return domain.Record{}, err
	}

	// description text arrives split over child elements; pieces keep their
	// own spacing and runs of whitespace collapse to one space
	r.CourseDescription = strings.Join(strings.Fields(strings.Join(f[domain.FieldCourseDescription], "")), " ")
	r.CourseSubjects = n.subjects(f[domain.FieldCourseSubject])

	dates := []struct {
		key string
		dst **time.Time
	}{
		{domain.FieldPresentationStart, &r.Start},
		{domain.FieldPresentationEnd, &r.End},
		{domain.FieldPresentationApplyFrom, &r.ApplyFrom},
		{domain.FieldPresentationApplyUntil, &r.ApplyUntil},
	}
	for _, d := range dates {
		raw, ok := f.First(d.key)
		if !ok {
			continue
		}
		t, ok := ParseLooseDate(raw)
		if !ok {
			return domain.Record{}, fmt.Errorf("%w: %s=%q", ErrBadDate, d.key, raw)
		}
		*d.dst = &t
	}

	r.BookingEndpoint, _ = f.First(domain.FieldPresentationBookingEnd)
	r.MemberApplyTo, _ = f.First(domain.FieldPresentationMemberApplyTo)
	r.AttendanceMode, _ = f.First(domain.FieldPresentationAttendMode)
	r.AttendancePattern, _ = f.First(domain.FieldPresentationAttendPattern)
	r.VenueID = n.venue(f[domain.FieldPresentationVenueID])

	return r, nil
}

func required(f Fragment, key string) (string, error) {
	v, ok := f.First(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return v, nil
}

// identifier picks the URI among the values of key. A URI under the
// identifier base keeps its full tail with "/" turned into "-"; any other
// http(s) URI falls back to its last path segment.
func (n Normalizer) identifier(f Fragment, key string) (string, error) {
	base := n.IdentifierBase
	if base == "" {
		base = DefaultIdentifierBase
	}

	values := f[key]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, base) {
			continue
		}
		if tail := strings.Trim(strings.TrimPrefix(v, base), "/"); tail != "" {
			return strings.ReplaceAll(tail, "/", "-"), nil
		}
	}
	for _, v := range values {
		if !isURI(v) || strings.HasPrefix(strings.TrimSpace(v), base) {
			continue
		}
		if tail := lastSegment(v); tail != "" {
			return tail, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoIdentifier, key)
}

func (n Normalizer) venue(values []string) string {
	base := n.VenueBase
	if base == "" {
		base = DefaultVenueBase
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, base) {
			continue
		}
		if tail := strings.Trim(strings.TrimPrefix(v, base), "/"); tail != "" {
			return venuePrefix + tail
		}
	}
	return ""
}

func (n Normalizer) subjects(values []string) []string {
	excluded := n.ExcludedSubjects
	if excluded == nil {
		excluded = DefaultExcludedSubjects
	}
	skip := make(map[string]bool, len(excluded))
	for _, s := range excluded {
		skip[s] = true
	}

	var out []string
	for _, v := range values {
		if skip[v] {
			continue
		}
		out = append(out, v)
	}
	return out
}

func isURI(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func lastSegment(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	p := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return p
}
