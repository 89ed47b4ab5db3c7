package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tutorado/internal/dashboard"
	"tutorado/internal/models"
)

const WorkbookName = "relatorios_tutorado.xlsx"

const (
	sheetStudents    = "Alunos"
	sheetAttendances = "Atendimentos"
	sheetByTutor     = "Por Tutor"
)

// WorkbookData is everything the workbook shows.
type WorkbookData struct {
	Students    []models.StudentSummary
	Attendances []models.Attendance
	Groups      []dashboard.TutorGroup

	// TutorName resolves the tutor column of the student sheet.
	TutorName func(id string) string
}

// Workbook writes an XLSX file with the general student list, the
// attendances and the students grouped by tutor.
func Workbook(w io.Writer, data WorkbookData) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	tutorName := data.TutorName
	if tutorName == nil {
		tutorName = func(id string) string { return id }
	}

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetStudents); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{{"ID", "Nome", "Série", "Tutor", "Nascimento"}}
	for _, s := range ByName(data.Students) {
		rows = append(rows, []any{s.ID, s.Name, s.Series, tutorName(s.TutorID), s.BirthDate})
	}
	if err := writeRows(f, sheetStudents, rows); err != nil {
		return err
	}

	rows = [][]any{{"Data", "Aluno", "ID Aluno", "Tutor", "Dimensão", "Assunto", "Observações"}}
	for _, a := range data.Attendances {
		rows = append(rows, []any{a.Date, a.StudentName, a.StudentID, a.TutorName, string(a.Dimension), a.Subject, a.Notes})
	}
	if err := writeRows(f, sheetAttendances, rows); err != nil {
		return err
	}

	rows = [][]any{{"Tutor", "ID", "Nome", "Série"}}
	for _, g := range data.Groups {
		for _, s := range g.Students {
			rows = append(rows, []any{g.TutorName, s.ID, s.Name, s.Series})
		}
	}
	if err := writeRows(f, sheetByTutor, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("lookup sheet %s: %w", sheet, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
