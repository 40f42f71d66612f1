package domain

import "time"

// Index field keys. Keep these EXACT: the index schema is keyed on them.
const (
	FieldProviderTitle             = "provider_title"
	FieldCourseTitle               = "course_title"
	FieldCourseIdentifier          = "course_identifier"
	FieldCourseDescription         = "course_description"
	FieldCourseSubject             = "course_subject"
	FieldPresentationIdentifier    = "presentation_identifier"
	FieldPresentationStart         = "presentation_start"
	FieldPresentationEnd           = "presentation_end"
	FieldPresentationApplyFrom     = "presentation_applyFrom"
	FieldPresentationApplyUntil    = "presentation_applyUntil"
	FieldPresentationBookingEnd    = "presentation_bookingEndpoint"
	FieldPresentationMemberApplyTo = "presentation_memberApplyTo"
	FieldPresentationAttendMode    = "presentation_attendanceMode"
	FieldPresentationAttendPattern = "presentation_attendancePattern"
	FieldPresentationVenueID       = "presentation_venue_identifier"
)

// FieldOrder lists the field keys in the order exports write them.
var FieldOrder = []string{
	FieldProviderTitle,
	FieldCourseTitle,
	FieldCourseIdentifier,
	FieldCourseDescription,
	FieldCourseSubject,
	FieldPresentationIdentifier,
	FieldPresentationStart,
	FieldPresentationEnd,
	FieldPresentationApplyFrom,
	FieldPresentationApplyUntil,
	FieldPresentationBookingEnd,
	FieldPresentationMemberApplyTo,
	FieldPresentationAttendMode,
	FieldPresentationAttendPattern,
	FieldPresentationVenueID,
}

// IndexTimeLayout is the UTC timestamp form the index accepts.
const IndexTimeLayout = "2006-01-02T15:04:05Z"

// Record is one presentation flattened with its course and provider fields.
// It is the unit submitted to the index; PresentationID is its key.
type Record struct {
	ProviderTitle     string
	CourseTitle       string
	CourseID          string
	CourseDescription string
	CourseSubjects    []string

	PresentationID string
	Start          *time.Time
	End            *time.Time
	ApplyFrom      *time.Time
	ApplyUntil     *time.Time

	BookingEndpoint   string
	MemberApplyTo     string
	AttendanceMode    string
	AttendancePattern string
	VenueID           string // "oxpoints:<id>" when known
}

// Document is the flat mapping handed to the index: string or []string values only.
type Document map[string]any

// Document renders the record with the index field keys. Optional fields
// that are empty are left out.
func (r Record) Document() Document {
	d := Document{
		FieldProviderTitle:          r.ProviderTitle,
		FieldCourseTitle:            r.CourseTitle,
		FieldCourseIdentifier:       r.CourseID,
		FieldPresentationIdentifier: r.PresentationID,
	}

	setString(d, FieldCourseDescription, r.CourseDescription)
	if len(r.CourseSubjects) > 0 {
		subjects := make([]string, len(r.CourseSubjects))
		copy(subjects, r.CourseSubjects)
		d[FieldCourseSubject] = subjects
	}

	setTime(d, FieldPresentationStart, r.Start)
	setTime(d, FieldPresentationEnd, r.End)
	setTime(d, FieldPresentationApplyFrom, r.ApplyFrom)
	setTime(d, FieldPresentationApplyUntil, r.ApplyUntil)

	setString(d, FieldPresentationBookingEnd, r.BookingEndpoint)
	setString(d, FieldPresentationMemberApplyTo, r.MemberApplyTo)
	setString(d, FieldPresentationAttendMode, r.AttendanceMode)
	setString(d, FieldPresentationAttendPattern, r.AttendancePattern)
	setString(d, FieldPresentationVenueID, r.VenueID)

	return d
}

// Documents renders a batch for a single index submission.
func Documents(records []Record) []Document {
	out := make([]Document, 0, len(records))
	for _, r := range records {
		out = append(out, r.Document())
	}
	return out
}

// FormatIndexTime renders t in the index timestamp form (always UTC).
func FormatIndexTime(t time.Time) string {
	return t.UTC().Format(IndexTimeLayout)
}

func setString(d Document, key, v string) {
	if v != "" {
		d[key] = v
	}
}

func setTime(d Document, key string, t *time.Time) {
	if t != nil {
		d[key] = FormatIndexTime(*t)
	}
}
