package domain

import "time"

// Course is the read-side view of a course, rebuilt from its presentation records.
type Course struct {
	ID          string
	Title       string
	Description string
	Provider    string
	Subjects    []string

	Presentations []Presentation
}

// Presentation is one scheduled offering of a Course.
type Presentation struct {
	ID       string
	CourseID string

	Start      *time.Time
	End        *time.Time
	ApplyFrom  *time.Time
	ApplyUntil *time.Time

	Location          string // venue identifier
	BookingEndpoint   string
	MemberApplyTo     string
	AttendanceMode    string
	AttendancePattern string
}

// Bookable reports whether the presentation accepts applications at now:
// it needs a booking endpoint and a full application window containing now.
func (p Presentation) Bookable(now time.Time) bool {
	if p.BookingEndpoint == "" || p.ApplyFrom == nil || p.ApplyUntil == nil {
		return false
	}
	return p.ApplyFrom.Before(now) && now.Before(*p.ApplyUntil)
}

// PresentationFromRecord extracts the presentation part of a flattened record.
func PresentationFromRecord(r Record) Presentation {
	return Presentation{
		ID:                r.PresentationID,
		CourseID:          r.CourseID,
		Start:             r.Start,
		End:               r.End,
		ApplyFrom:         r.ApplyFrom,
		ApplyUntil:        r.ApplyUntil,
		Location:          r.VenueID,
		BookingEndpoint:   r.BookingEndpoint,
		MemberApplyTo:     r.MemberApplyTo,
		AttendanceMode:    r.AttendanceMode,
		AttendancePattern: r.AttendancePattern,
	}
}

// GroupCourses folds presentation records back into courses, keyed by
// course identifier. Courses keep the order in which they first appear;
// course-level fields come from the first record of each course.
func GroupCourses(records []Record) []Course {
	idx := map[string]int{}
	out := make([]Course, 0)

	for _, r := range records {
		i, ok := idx[r.CourseID]
		if !ok {
			i = len(out)
			idx[r.CourseID] = i
			out = append(out, Course{
				ID:          r.CourseID,
				Title:       r.CourseTitle,
				Description: r.CourseDescription,
				Provider:    r.ProviderTitle,
				Subjects:    append([]string(nil), r.CourseSubjects...),
			})
		}
		out[i].Presentations = append(out[i].Presentations, PresentationFromRecord(r))
	}
	return out
}
