package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorado/internal/models"
)

func ptr[S any](v S) *S { return &v }

func fullStudent() models.StudentDetail {
	return models.StudentDetail{
		StudentSummary: models.StudentSummary{
			ID: "ALU001", TutorID: "TUT001", Name: "João Pedro Alves",
			Series: "1ºSérie A", BirthDate: "2008-05-15",
		},
		PhoneStudent:      "(11) 99999-9999",
		PhoneGuardian:     "(11) 98888-8888",
		SchoolsAttended:   "Escola Municipal Central",
		Photo:             ptr("https://example.org/p.png"),
		FatherName:        "Roberto",
		FatherAge:         "45",
		FatherJob:         "Engenheiro",
		MotherName:        "Cláudia",
		MotherAge:         "42",
		MotherJob:         "Professora",
		Siblings:          "Marcos (12), Paula (8)",
		LivingArrangement: "Pais",
		HasDevice:         []string{"Celular", "Tablet"},
		HasInternet:       true,
		HasPet:            true,
		PetDetails:        ptr("Cachorro Rex"),
		CoursesExternal:   false,
		StudyAtHome:       true,
		StudyTime:         ptr("2 horas"),
		LikesReading:      true,
		Sports:            true,
		SportDetails:      ptr("Futebol"),
		LeisureActivity:   "Jogar video-game",
		DislikesActivity:  "Lavar louça",
		SleepTime:         "22:00",
		WakeTime:          "06:30",
		LifeProject:       "Ser Engenheiro de Software",
		Roles:             []string{"Líder de Turma"},

		PerformanceDocType: ptr(models.DocPDF),
		PerformanceDoc:     ptr("data:application/pdf;base64,AAAA"),
	}
}

func TestStudentRoundTrip(t *testing.T) {
	s := fullStudent()
	assert.Equal(t, s, Students.Decode(Students.Encode(s)))

	sparse := models.NewStudentDetail(models.StudentSummary{ID: "ALU002", TutorID: "TUT002", Name: "Mariana"})
	got := Students.Decode(Students.Encode(sparse))
	assert.Equal(t, sparse, got)
	assert.Nil(t, got.PetDetails)
	assert.Nil(t, got.PerformanceDocType)
}

func TestUserRoundTrip(t *testing.T) {
	users := []models.User{
		{ID: "ADM001", Name: "Diretora Maria Silva", Role: models.RoleAdmin},
		{ID: "TUT001", Name: "Prof. Carlos", Role: models.RoleTutor, Photo: ptr(""), Password: ptr("segredo")},
	}
	for _, u := range users {
		assert.Equal(t, u, Users.Decode(Users.Encode(u)))
	}
}

func TestAttendanceRoundTrip(t *testing.T) {
	a := models.Attendance{
		ID: "ATD1700000000000", StudentID: "ALU001", StudentName: "João",
		TutorID: "TUT001", TutorName: "Carlos", Date: "2024-03-01",
		Dimension: models.DimensionAcademic, Subject: "Notas", Notes: "",
	}
	assert.Equal(t, a, Attendances.Decode(Attendances.Encode(a)))
}

func TestNullOptionalSurvivesRoundTrip(t *testing.T) {
	row := Row{"id": "ALU001", "tutor_id": "TUT001", "name": "João", "pet_details": nil}

	out := Students.Encode(Students.Decode(row))

	v, present := out["pet_details"]
	require.True(t, present, "optional fields are encoded, not omitted")
	assert.Nil(t, v)
	assert.Equal(t, "TUT001", out["tutor_id"])
}

func TestDecodeDefaults(t *testing.T) {
	s := Students.Decode(Row{"id": "ALU009"})

	assert.Equal(t, "ALU009", s.ID)
	assert.Equal(t, "", s.Series)
	assert.Equal(t, []string{}, s.HasDevice)
	assert.Equal(t, []string{}, s.Roles)
	assert.False(t, s.HasInternet)
	assert.Nil(t, s.Photo)
	assert.Nil(t, s.PerformanceDoc)
}

func TestEncodeWritesEveryColumn(t *testing.T) {
	row := Students.Encode(models.NewStudentDetail(models.StudentSummary{ID: "ALU001"}))
	assert.Len(t, row, len(Students.Columns()))
	for _, col := range Students.Columns() {
		_, ok := row[col]
		assert.True(t, ok, col)
	}
}

func TestDecodeAcceptsDriverShapes(t *testing.T) {
	birth := time.Date(2008, 5, 15, 0, 0, 0, 0, time.UTC)
	s := Students.Decode(Row{
		"id":         "ALU001",
		"birth_date": birth,
		"has_device": []any{"Celular", "Notebook"},
		"roles":      []string{"Monitor"},
	})
	assert.Equal(t, "2008-05-15", s.BirthDate)
	assert.Equal(t, []string{"Celular", "Notebook"}, s.HasDevice)
	assert.Equal(t, []string{"Monitor"}, s.Roles)

	a := Attendances.Decode(Row{"id": "ATD1", "date": "2024-03-01T12:30:00+00:00"})
	assert.Equal(t, "2024-03-01", a.Date)
}

func TestSummaryColumnsArePrefixOfFull(t *testing.T) {
	summary := StudentSummaries.Columns()
	assert.Equal(t, []string{"id", "tutor_id", "name", "series", "birth_date"}, summary)
	assert.Equal(t, summary, Students.Columns()[:len(summary)])
	assert.Len(t, Students.Columns(), 37)
}

func TestEncodeCopiesLists(t *testing.T) {
	s := fullStudent()
	row := Students.Encode(s)
	row["has_device"].([]string)[0] = "changed"
	assert.Equal(t, "Celular", s.HasDevice[0])
}
