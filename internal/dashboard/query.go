package dashboard

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tutorado/internal/models"
)

// OthersTitle labels the group of students assigned to non-tutor users.
const OthersTitle = "Outros / Administradores"

const topStudentsLimit = 20

// FilterStudents matches term against name or id, ignoring case. An empty
// series or "Todas" keeps every series.
func (s *Service) FilterStudents(term, series string) []models.StudentSummary {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []models.StudentSummary{}
	for _, st := range s.state.Students() {
		if term != "" &&
			!strings.Contains(strings.ToLower(st.Name), term) &&
			!strings.Contains(strings.ToLower(st.ID), term) {
			continue
		}
		if series != "" && series != models.AllSeries && !strings.Contains(st.Series, series) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// AttendanceFilter bounds are inclusive YYYY-MM-DD dates; empty means open.
type AttendanceFilter struct {
	From    string
	To      string
	Student string
}

// FilterAttendances returns the matching attendances newest first. The
// student term is matched against the student's current name when the
// student is still loaded, and against the name recorded at logging time
// otherwise.
func (s *Service) FilterAttendances(f AttendanceFilter) []models.Attendance {
	term := fold(strings.TrimSpace(f.Student))
	names := make(map[string]string)
	for _, st := range s.state.Students() {
		names[st.ID] = st.Name
	}

	out := []models.Attendance{}
	for _, a := range s.state.Attendances() {
		day := dateOnly(a.Date)
		if f.From != "" && day < f.From {
			continue
		}
		if f.To != "" && day > f.To {
			continue
		}
		if term != "" {
			name, ok := names[a.StudentID]
			if !ok {
				name = a.StudentName
			}
			if !strings.Contains(fold(name), term) {
				continue
			}
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dateOnly(out[i].Date) > dateOnly(out[j].Date)
	})
	return out
}

// AttendancesOf lists the attendances of one student, newest first.
func (s *Service) AttendancesOf(studentID string) []models.Attendance {
	out := []models.Attendance{}
	for _, a := range s.state.Attendances() {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dateOnly(out[i].Date) > dateOnly(out[j].Date)
	})
	return out
}

// TutorName resolves a user id, or "Não atribuído" for a dangling reference.
func (s *Service) TutorName(id string) string {
	if u, ok := s.state.User(id); ok {
		return u.Name
	}
	return models.UnassignedTutor
}

type TutorGroup struct {
	TutorID   string
	TutorName string
	Students  []models.StudentSummary
}

// StudentsByTutor groups students under every tutor, empty groups included.
// Students assigned to an existing non-tutor user end up in a trailing
// OUTROS group; students with a dangling tutor are left out.
func (s *Service) StudentsByTutor() []TutorGroup {
	users := s.state.Users()
	students := s.state.Students()

	known := make(map[string]bool, len(users))
	var groups []TutorGroup
	index := make(map[string]int)
	for _, u := range users {
		known[u.ID] = true
		if u.Role != models.RoleTutor {
			continue
		}
		if _, dup := index[u.ID]; dup {
			continue
		}
		index[u.ID] = len(groups)
		groups = append(groups, TutorGroup{TutorID: u.ID, TutorName: u.Name, Students: []models.StudentSummary{}})
	}

	var others []models.StudentSummary
	for _, st := range students {
		if i, ok := index[st.TutorID]; ok {
			groups[i].Students = append(groups[i].Students, st)
			continue
		}
		if known[st.TutorID] {
			others = append(others, st)
		}
	}
	if len(others) > 0 {
		groups = append(groups, TutorGroup{TutorID: models.OtherTutorsBucket, TutorName: OthersTitle, Students: others})
	}
	return groups
}

type NameCount struct {
	Name  string
	Count int
}

type StudentCount struct {
	Student models.StudentSummary
	Count   int
}

type Stats struct {
	TotalStudents    int
	TotalTutors      int
	TotalAttendances int

	// ByTutor counts attendances per user, skipping users with none.
	ByTutor []NameCount

	// ByDimension covers the dimensions offered by the form, skipping empty ones.
	ByDimension []NameCount

	TopStudents []StudentCount
	Birthdays   []models.StudentSummary
}

func (s *Service) Stats(now time.Time) Stats {
	users := s.state.Users()
	students := s.state.Students()
	attendances := s.state.Attendances()

	st := Stats{
		TotalStudents:    len(students),
		TotalAttendances: len(attendances),
		ByTutor:          []NameCount{},
		ByDimension:      []NameCount{},
		Birthdays:        []models.StudentSummary{},
	}

	perTutor := make(map[string]int)
	perDimension := make(map[models.Dimension]int)
	perStudent := make(map[string]int)
	for _, a := range attendances {
		perTutor[a.TutorID]++
		perDimension[a.Dimension]++
		perStudent[a.StudentID]++
	}

	for _, u := range users {
		if u.Role == models.RoleTutor {
			st.TotalTutors++
		}
		if n := perTutor[u.ID]; n > 0 {
			st.ByTutor = append(st.ByTutor, NameCount{Name: shortName(u.Name), Count: n})
		}
	}
	for _, d := range models.FormDimensions {
		if n := perDimension[d]; n > 0 {
			st.ByDimension = append(st.ByDimension, NameCount{Name: string(d), Count: n})
		}
	}

	top := make([]StudentCount, 0, len(students))
	for _, sum := range students {
		top = append(top, StudentCount{Student: sum, Count: perStudent[sum.ID]})
		if birth, err := time.Parse("2006-01-02", dateOnly(sum.BirthDate)); err == nil && birth.Month() == now.Month() {
			st.Birthdays = append(st.Birthdays, sum)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > topStudentsLimit {
		top = top[:topStudentsLimit]
	}
	st.TopStudents = top
	return st
}

// shortName keeps the first two words of a name.
func shortName(name string) string {
	parts := strings.Fields(name)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}

func dateOnly(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// fold lowercases s and strips its diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
