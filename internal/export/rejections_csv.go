package export

import (
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"strings"

	"xcri-import/internal/domain"
	"xcri-import/internal/xcri"
)

// Keep header order EXACT; operators diff these reports between runs.
var rejectionHeader = []string{
	"FEED",
	"PRESENTATION_IDENTIFIER",
	"COURSE_IDENTIFIER",
	"COURSE_TITLE",
	"REASON",
	"FRAGMENT",
}

// FeedRejections pairs a feed with the presentations it rejected.
type FeedRejections struct {
	Feed     string
	Rejected []xcri.Rejection
}

// WriteRejectionsCSV writes one row per rejected presentation.
func WriteRejectionsCSV(w io.Writer, feeds []FeedRejections) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(rejectionHeader); err != nil {
		return err
	}

	for _, fr := range feeds {
		for _, rej := range fr.Rejected {
			if err := cw.Write(toRejectionRow(fr.Feed, rej)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func toRejectionRow(feed string, rej xcri.Rejection) []string {
	first := func(key string) string {
		v, _ := rej.Fragment.First(key)
		return oneLine(v)
	}

	reason := ""
	if rej.Reason != nil {
		reason = rej.Reason.Error()
	}

	return []string{
		feed,
		first(domain.FieldPresentationIdentifier), // PRESENTATION_IDENTIFIER
		first(domain.FieldCourseIdentifier),       // COURSE_IDENTIFIER
		first(domain.FieldCourseTitle),            // COURSE_TITLE
		reason,                                    // REASON
		fragmentString(rej.Fragment),              // FRAGMENT
	}
}

// fragmentString renders a fragment as "key=v1|v2; key=v" with sorted keys.
func fragmentString(f xcri.Fragment) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vals := make([]string, 0, len(f[k]))
		for _, v := range f[k] {
			vals = append(vals, oneLine(v))
		}
		parts = append(parts, k+"="+strings.Join(vals, "|"))
	}
	return strings.Join(parts, "; ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Reason classifies a rejection for summaries: "missing field", "no identifier",
// "bad date" or "other".
func Reason(err error) string {
	switch {
	case errors.Is(err, xcri.ErrMissingField):
		return "missing field"
	case errors.Is(err, xcri.ErrNoIdentifier):
		return "no identifier"
	case errors.Is(err, xcri.ErrBadDate):
		return "bad date"
	default:
		return "other"
	}
}
