package memstore

import (
	"fmt"
	"time"

	"tutorado/internal/codec"
	"tutorado/internal/models"
	"tutorado/internal/store"
)

var seedStudentNames = []string{
	"João Pedro Alves", "Mariana Costa", "Pedro Henrique", "Lucas Lima", "Beatriz Souza",
	"Fernanda Rocha", "Gabriel Pereira", "Isabela Dias", "Rafael Martins", "Julia Ferreira",
}

// Seed fills the store with the demo school: one administrator, two tutors,
// ten students and three attendances dated relative to now.
func (s *Store) Seed(now time.Time) {
	daysAgo := func(d int) string { return now.AddDate(0, 0, -d).Format("2006-01-02") }
	str := func(v string) *string { return &v }

	users := []models.User{
		{ID: "ADM001", Name: "Diretora Maria Silva", Role: models.RoleAdmin, Photo: str("https://picsum.photos/200/200?random=1")},
		{ID: "TUT001", Name: "Prof. Carlos Santos", Role: models.RoleTutor, Photo: str("https://picsum.photos/200/200?random=2")},
		{ID: "TUT002", Name: "Prof. Ana Oliveira", Role: models.RoleTutor, Photo: str("https://picsum.photos/200/200?random=3")},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		s.put(store.TableUsers, u.ID, codec.Users.Encode(u))
	}

	for i, name := range seedStudentNames {
		st := models.NewStudentDetail(models.StudentSummary{
			ID:        fmt.Sprintf("ALU%03d", i+1),
			TutorID:   "TUT001",
			Name:      name,
			Series:    "1ºSérie A",
			BirthDate: "2008-05-15",
		})
		if i >= 5 {
			st.TutorID = "TUT002"
		}
		if i%2 != 0 {
			st.Series = "2ºSérie B"
		}
		if i == 0 {
			st.BirthDate = daysAgo(5)
		}
		st.PhoneStudent = "(11) 99999-9999"
		st.PhoneGuardian = "(11) 98888-8888"
		st.SchoolsAttended = "Escola Municipal Central"
		st.FatherName, st.FatherAge, st.FatherJob = "Roberto", "45", "Engenheiro"
		st.MotherName, st.MotherAge, st.MotherJob = "Cláudia", "42", "Professora"
		st.Siblings = "Marcos (12), Paula (8)"
		st.LivingArrangement = "Pais"
		st.HasDevice = []string{"Celular"}
		st.HasInternet = true
		st.HasPet, st.PetDetails = true, str("Cachorro Rex")
		st.StudyAtHome, st.StudyTime = true, str("2 horas")
		st.LikesReading, st.BookType = true, str("Ficção")
		st.Sports, st.SportDetails = true, str("Futebol")
		st.LeisureActivity = "Jogar video-game"
		st.DislikesActivity = "Lavar louça"
		st.SleepTime, st.WakeTime = "22:00", "06:30"
		st.LifeProject = "Ser Engenheiro de Software"
		if i%3 == 0 {
			st.Roles = []string{"Líder de Turma"}
		}
		st.Photo = str(fmt.Sprintf("https://picsum.photos/200/200?random=%d", 10+i))
		s.put(store.TableStudents, st.ID, codec.Students.Encode(st))
	}

	attendances := []models.Attendance{
		{ID: "ATD001", StudentID: "ALU001", StudentName: "João Pedro Alves", TutorID: "TUT001", TutorName: "Prof. Carlos Santos",
			Date: daysAgo(1), Dimension: models.DimensionAcademic, Subject: "Notas baixas em Matemática", Notes: "Aluno comprometeu-se a estudar mais."},
		{ID: "ATD002", StudentID: "ALU002", StudentName: "Mariana Costa", TutorID: "TUT001", TutorName: "Prof. Carlos Santos",
			Date: daysAgo(2), Dimension: models.DimensionPersonal, Subject: "Conflito com colegas", Notes: "Conversa realizada com a turma."},
		{ID: "ATD003", StudentID: "ALU006", StudentName: "Fernanda Rocha", TutorID: "TUT002", TutorName: "Prof. Ana Oliveira",
			Date: daysAgo(0), Dimension: models.DimensionProfessional, Subject: "Orientação Vocacional", Notes: "Interesse em Medicina."},
	}
	for _, a := range attendances {
		s.put(store.TableAttendances, a.ID, codec.Attendances.Encode(a))
	}
}
