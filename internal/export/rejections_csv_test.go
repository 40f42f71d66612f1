package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"

	"xcri-import/internal/xcri"
)

func TestWriteRejectionsCSV(t *testing.T) {
	feeds := []FeedRejections{
		{
			Feed: "catalog.xml",
			Rejected: []xcri.Rejection{
				{
					Fragment: xcri.Fragment{
						"presentation_identifier": {"NOT-A-URI"},
						"course_identifier":       {"http://course.data.ox.ac.uk/id/it/course/writing"},
						"course_title":            {"Academic\n  Writing"},
					},
					Reason: fmt.Errorf("presentation_identifier: %w", xcri.ErrNoIdentifier),
				},
			},
		},
		{Feed: "empty.xml"},
	}

	var buf bytes.Buffer
	if err := WriteRejectionsCSV(&buf, feeds); err != nil {
		t.Fatalf("WriteRejectionsCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Generated CSV is invalid: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and 1 row, got %d rows", len(rows))
	}
	if len(rows[0]) != len(rejectionHeader) || rows[0][0] != "FEED" {
		t.Errorf("Unexpected header %v", rows[0])
	}

	row := rows[1]
	if row[0] != "catalog.xml" || row[1] != "NOT-A-URI" {
		t.Errorf("Unexpected row %v", row)
	}
	if row[3] != "Academic Writing" {
		t.Errorf("Expected title on one line, got %q", row[3])
	}
	if row[4] != "presentation_identifier: no URI identifier" {
		t.Errorf("Unexpected reason %q", row[4])
	}
	want := "course_identifier=http://course.data.ox.ac.uk/id/it/course/writing; course_title=Academic Writing; presentation_identifier=NOT-A-URI"
	if row[5] != want {
		t.Errorf("Expected fragment %q, got %q", want, row[5])
	}
}

func TestReason(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("course_title: %w", xcri.ErrMissingField), "missing field"},
		{fmt.Errorf("presentation_identifier: %w", xcri.ErrNoIdentifier), "no identifier"},
		{fmt.Errorf("presentation_start: %w", xcri.ErrBadDate), "bad date"},
		{errors.New("boom"), "other"},
	}

	for _, tc := range testCases {
		if got := Reason(tc.err); got != tc.want {
			t.Errorf("Reason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
