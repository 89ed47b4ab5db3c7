// Package report renders the exports offered to users: the student list as
// CSV, attendances as a plain-text report, per-tutor rosters and an XLSX
// workbook with all of it.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"tutorado/internal/dashboard"
	"tutorado/internal/models"
)

const StudentsCSVName = "alunos_tutorado.csv"

const separator = "-----------------------------------"

var studentsHeader = []string{"ID", "Nome", "Série", "Tutor ID", "Nascimento"}

// AttendancesTextName names the text report produced on day.
func AttendancesTextName(day time.Time) string {
	return fmt.Sprintf("relatorio_atendimentos_%s.txt", day.Format("2006-01-02"))
}

// StudentsCSV writes one line per student after the header. Fields holding
// a comma or a quote are quoted.
func StudentsCSV(w io.Writer, students []models.StudentSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(studentsHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range students {
		if err := cw.Write([]string{s.ID, s.Name, s.Series, s.TutorID, s.BirthDate}); err != nil {
			return fmt.Errorf("write csv row %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AttendancesText writes one labeled block per attendance, using the names
// recorded when each attendance was logged.
func AttendancesText(w io.Writer, attendances []models.Attendance) error {
	for _, a := range attendances {
		_, err := fmt.Fprintf(w, "DATA: %s\nALUNO: %s (%s)\nTUTOR: %s\nDIMENSÃO: %s\nASSUNTO: %s\nOBS: %s\n%s\n",
			a.Date, a.StudentName, a.StudentID, a.TutorName, a.Dimension, a.Subject, a.Notes, separator)
		if err != nil {
			return fmt.Errorf("write attendance %s: %w", a.ID, err)
		}
	}
	return nil
}

// TutorRoster writes the students of one tutor group.
func TutorRoster(w io.Writer, g dashboard.TutorGroup) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d alunos)\n", g.TutorName, len(g.Students))
	for _, s := range g.Students {
		fmt.Fprintf(&b, "%s | %s | %s | %s\n", s.ID, s.Name, s.Series, s.BirthDate)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write roster %s: %w", g.TutorID, err)
	}
	return nil
}

// ByName returns a copy of students sorted by name.
func ByName(students []models.StudentSummary) []models.StudentSummary {
	out := append([]models.StudentSummary(nil), students...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
