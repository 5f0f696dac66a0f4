package grading

import (
	"encoding/csv"
	"io"

	"github.com/codebuildervaibhav/lecture-grader/internal/types"
)

// CSVHeader is the first line of every export.
var CSVHeader = []string{"Speaker", "Mark", "Comment(Feedback)"}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []types.GradeRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.SpeakerID, r.Score, r.Comment}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
