package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorado/internal/cache"
	"tutorado/internal/gateway"
	"tutorado/internal/models"
	"tutorado/internal/store"
	"tutorado/internal/store/memstore"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

var (
	admin  = models.User{ID: "ADM001", Name: "Diretora Maria Silva", Role: models.RoleAdmin}
	carlos = models.User{ID: "TUT001", Name: "Prof. Carlos Santos", Role: models.RoleTutor}
	ana    = models.User{ID: "TUT002", Name: "Prof. Ana Oliveira", Role: models.RoleTutor}
)

func newService(t *testing.T, timeout time.Duration) (*Service, *memstore.Store) {
	t.Helper()
	mem := memstore.New()
	mem.Seed(fixedNow)
	gw := gateway.New(mem, nil, gateway.Options{Now: func() time.Time { return fixedNow }})
	svc := New(gw, cache.New(), nil, Options{LoadTimeout: timeout, Now: func() time.Time { return fixedNow }})
	t.Cleanup(svc.Close)
	return svc, mem
}

func started(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	svc, mem := newService(t, time.Second)
	outcome, err := svc.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, Loaded, outcome)
	return svc, mem
}

func TestStartLoadsEverything(t *testing.T) {
	svc, _ := started(t)

	select {
	case <-svc.Ready():
	default:
		t.Fatal("ready should be closed after a completed load")
	}
	assert.Len(t, svc.Users(), 3)
	assert.Len(t, svc.Students(), 10)
	assert.Len(t, svc.Attendances(), 3)
}

func TestStartTwice(t *testing.T) {
	svc, _ := started(t)
	_, err := svc.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStartTimeoutKeepsLoading(t *testing.T) {
	svc, mem := newService(t, 20*time.Millisecond)
	mem.SetDelay(150 * time.Millisecond)

	outcome, err := svc.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TimedOut, outcome)
	assert.Empty(t, svc.Users())

	select {
	case <-svc.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("late load never applied")
	}
	assert.Len(t, svc.Users(), 3)
}

func TestLateLoadDiscardedAfterClose(t *testing.T) {
	svc, mem := newService(t, 10*time.Millisecond)
	mem.SetDelay(100 * time.Millisecond)

	outcome, _ := svc.Start(context.Background())
	require.Equal(t, TimedOut, outcome)
	svc.Close()

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, svc.Users())
}

func TestStartPartialFailure(t *testing.T) {
	svc, mem := newService(t, time.Second)
	mem.Fail(store.TableStudents, errors.New("boom"))

	outcome, err := svc.Start(context.Background())
	assert.Equal(t, Loaded, outcome)
	assert.Error(t, err)
	assert.Len(t, svc.Users(), 3)
	assert.Empty(t, svc.Students())
	assert.Len(t, svc.Attendances(), 3)
}

func TestStartTotalFailureStaysUsable(t *testing.T) {
	svc, mem := newService(t, time.Second)
	for _, table := range []string{store.TableUsers, store.TableStudents, store.TableAttendances} {
		mem.Fail(table, store.ErrNotConfigured)
	}

	outcome, err := svc.Start(context.Background())
	assert.Equal(t, Loaded, outcome)
	require.ErrorIs(t, err, store.ErrNotConfigured)
	assert.NotErrorIs(t, err, ErrAlreadyStarted)

	select {
	case <-svc.Ready():
	default:
		t.Fatal("ready should be closed even when every collection failed")
	}
	assert.Empty(t, svc.Users())
}

func TestSaveStudentAllocatesID(t *testing.T) {
	svc, mem := started(t)

	d := models.NewStudentDetail(models.StudentSummary{Name: "Nova Aluna", TutorID: "TUT002", Series: "6ºSérie A"})
	saved, err := svc.SaveStudent(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "ALU011", saved.ID)

	sum, ok := svc.Student("ALU011")
	require.True(t, ok)
	assert.Equal(t, "Nova Aluna", sum.Name)
	assert.Len(t, mem.Rows(store.TableStudents), 11)
}

func TestSaveStudentFailureLeavesCache(t *testing.T) {
	svc, mem := started(t)
	mem.Fail(store.TableStudents, errors.New("down"))

	d := models.NewStudentDetail(models.StudentSummary{ID: "ALU001", Name: "Renamed"})
	_, err := svc.SaveStudent(context.Background(), d)
	require.Error(t, err)

	sum, _ := svc.Student("ALU001")
	assert.Equal(t, "João Pedro Alves", sum.Name)
}

func TestOpenStudent(t *testing.T) {
	svc, mem := started(t)

	full, err := svc.OpenStudent(context.Background(), "ALU002")
	require.NoError(t, err)
	assert.Equal(t, "Cláudia", full.MotherName)

	mem.Fail(store.TableStudents, errors.New("down"))
	cached, err := svc.OpenStudent(context.Background(), "ALU002")
	require.NoError(t, err)
	assert.Equal(t, "Cláudia", cached.MotherName, "falls back to the fetched copy")

	partial, err := svc.OpenStudent(context.Background(), "ALU003")
	require.NoError(t, err)
	assert.Equal(t, "Pedro Henrique", partial.Name)
	assert.Empty(t, partial.MotherName)

	_, err = svc.OpenStudent(context.Background(), "ALU404")
	assert.Error(t, err)
}

func TestSaveUserAllocatesPerRole(t *testing.T) {
	svc, _ := started(t)

	tutor, err := svc.SaveUser(context.Background(), models.User{Name: "Prof. Paulo", Role: models.RoleTutor})
	require.NoError(t, err)
	assert.Equal(t, "TUT003", tutor.ID)

	adm, err := svc.SaveUser(context.Background(), models.User{Name: "Vice", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "ADM002", adm.ID)

	u, err := svc.OpenUser(context.Background(), "TUT003")
	require.NoError(t, err)
	assert.Equal(t, "Prof. Paulo", u.Name)
}

func TestDeleteUser(t *testing.T) {
	svc, _ := started(t)

	assert.ErrorIs(t, svc.DeleteUser(context.Background(), admin, "ADM001"), ErrSelfDelete)
	require.NoError(t, svc.DeleteUser(context.Background(), admin, "TUT002"))

	_, ok := svc.User("TUT002")
	assert.False(t, ok)
	assert.Equal(t, models.UnassignedTutor, svc.TutorName("TUT002"))
	assert.Equal(t, "Prof. Carlos Santos", svc.TutorName("TUT001"))
}

func TestDeleteStudent(t *testing.T) {
	svc, mem := started(t)
	require.NoError(t, svc.DeleteStudent(context.Background(), "ALU010"))
	_, ok := svc.Student("ALU010")
	assert.False(t, ok)

	mem.Fail(store.TableStudents, errors.New("down"))
	assert.Error(t, svc.DeleteStudent(context.Background(), "ALU009"))
	_, ok = svc.Student("ALU009")
	assert.True(t, ok)
}

func TestCreateAttendance(t *testing.T) {
	svc, _ := started(t)

	a, err := svc.SaveAttendance(context.Background(), ana, AttendanceForm{
		StudentID: "ALU007", Date: "2024-06-10", Subject: "Rendimento", Notes: "ok",
	})
	require.NoError(t, err)

	assert.Equal(t, "ATD1718020800000", a.ID)
	assert.Equal(t, "Gabriel Pereira", a.StudentName)
	assert.Equal(t, "TUT002", a.TutorID)
	assert.Equal(t, "Prof. Ana Oliveira", a.TutorName)
	assert.Equal(t, models.DimensionAcademic, a.Dimension)
	assert.Equal(t, a.ID, svc.Attendances()[0].ID, "new attendances go first")

	again, err := svc.SaveAttendance(context.Background(), ana, AttendanceForm{
		StudentID: "ALU404", Date: "2024-06-10", Subject: "Outro", Dimension: models.DimensionPersonal,
	})
	require.NoError(t, err)
	assert.Equal(t, "ATD1718020800001", again.ID, "same instant gets the next free millisecond")
	assert.Equal(t, models.UnknownStudent, again.StudentName)
}

func TestCreateAttendanceValidation(t *testing.T) {
	svc, _ := started(t)
	for _, form := range []AttendanceForm{
		{Date: "2024-06-10", Subject: "x"},
		{StudentID: "ALU001", Subject: "x"},
		{StudentID: "ALU001", Date: "2024-06-10", Subject: "  "},
	} {
		_, err := svc.SaveAttendance(context.Background(), carlos, form)
		assert.ErrorIs(t, err, ErrMissingField)
	}
	assert.Len(t, svc.Attendances(), 3)
}

func TestEditAttendanceKeepsAttribution(t *testing.T) {
	svc, _ := started(t)

	a, err := svc.SaveAttendance(context.Background(), admin, AttendanceForm{
		ID: "ATD001", StudentID: "ALU003", Date: "2024-06-01",
		Dimension: models.DimensionPersonal, Subject: "Revisto", Notes: "nova nota",
	})
	require.NoError(t, err)

	assert.Equal(t, "TUT001", a.TutorID)
	assert.Equal(t, "Prof. Carlos Santos", a.TutorName)
	assert.Equal(t, "ALU003", a.StudentID)
	assert.Equal(t, "Pedro Henrique", a.StudentName)
	assert.Equal(t, "Revisto", a.Subject)

	var order []string
	for _, x := range svc.Attendances() {
		order = append(order, x.ID)
	}
	assert.Equal(t, []string{"ATD003", "ATD001", "ATD002"}, order, "edit keeps position")
}

func TestAttendancePermissions(t *testing.T) {
	svc, _ := started(t)
	form := AttendanceForm{ID: "ATD001", StudentID: "ALU001", Date: "2024-06-09", Subject: "x"}

	_, err := svc.SaveAttendance(context.Background(), ana, form)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.DeleteAttendance(context.Background(), ana, "ATD001"), ErrForbidden)

	_, err = svc.SaveAttendance(context.Background(), carlos, form)
	assert.NoError(t, err)
	require.NoError(t, svc.DeleteAttendance(context.Background(), carlos, "ATD001"))
	_, ok := svc.Attendance("ATD001")
	assert.False(t, ok)

	assert.ErrorIs(t, svc.DeleteAttendance(context.Background(), admin, "ATD001"), ErrNotFound)
}

func TestFilterStudents(t *testing.T) {
	svc, _ := started(t)

	got := svc.FilterStudents("MARI", models.AllSeries)
	require.Len(t, got, 1)
	assert.Equal(t, "ALU002", got[0].ID)

	assert.Len(t, svc.FilterStudents("alu00", ""), 9)
	assert.Len(t, svc.FilterStudents("", "2ºSérie"), 5)
	assert.Len(t, svc.FilterStudents("", models.AllSeries), 10)
	assert.Empty(t, svc.FilterStudents("zzz", ""))
}

func TestFilterAttendances(t *testing.T) {
	svc, _ := started(t)

	got := svc.FilterAttendances(AttendanceFilter{Student: "joao"})
	require.Len(t, got, 1)
	assert.Equal(t, "ATD001", got[0].ID)

	got = svc.FilterAttendances(AttendanceFilter{From: "2024-06-09"})
	require.Len(t, got, 2)
	assert.Equal(t, "ATD003", got[0].ID)
	assert.Equal(t, "ATD001", got[1].ID)

	got = svc.FilterAttendances(AttendanceFilter{From: "2024-06-08", To: "2024-06-08"})
	require.Len(t, got, 1)
	assert.Equal(t, "ATD002", got[0].ID)
}

func TestFilterAttendancesUsesLiveStudentName(t *testing.T) {
	svc, _ := started(t)
	d, err := svc.OpenStudent(context.Background(), "ALU001")
	require.NoError(t, err)
	d.Name = "Joãozinho Ávila"
	_, err = svc.SaveStudent(context.Background(), d)
	require.NoError(t, err)

	got := svc.FilterAttendances(AttendanceFilter{Student: "AVILA"})
	require.Len(t, got, 1)
	assert.Equal(t, "João Pedro Alves", got[0].StudentName, "snapshot is not rewritten")
}

func TestAttendancesOf(t *testing.T) {
	svc, _ := started(t)
	_, err := svc.SaveAttendance(context.Background(), carlos, AttendanceForm{StudentID: "ALU001", Date: "2024-05-01", Subject: "antigo"})
	require.NoError(t, err)

	got := svc.AttendancesOf("ALU001")
	require.Len(t, got, 2)
	assert.Equal(t, "ATD001", got[0].ID)
}

func TestStudentsByTutor(t *testing.T) {
	svc, _ := started(t)
	ctx := context.Background()
	_, err := svc.SaveStudent(ctx, models.NewStudentDetail(models.StudentSummary{Name: "Do Admin", TutorID: "ADM001"}))
	require.NoError(t, err)
	_, err = svc.SaveStudent(ctx, models.NewStudentDetail(models.StudentSummary{Name: "Sem Tutor", TutorID: "TUT999"}))
	require.NoError(t, err)
	_, err = svc.SaveUser(ctx, models.User{Name: "Prof. Novo", Role: models.RoleTutor})
	require.NoError(t, err)

	groups := svc.StudentsByTutor()
	require.Len(t, groups, 4)
	assert.Equal(t, "TUT001", groups[0].TutorID)
	assert.Len(t, groups[0].Students, 5)
	assert.Len(t, groups[1].Students, 5)
	assert.Equal(t, "TUT003", groups[2].TutorID)
	assert.Empty(t, groups[2].Students)
	assert.Equal(t, models.OtherTutorsBucket, groups[3].TutorID)
	require.Len(t, groups[3].Students, 1)
	assert.Equal(t, "Do Admin", groups[3].Students[0].Name)
}

func TestStats(t *testing.T) {
	svc, _ := started(t)

	st := svc.Stats(fixedNow)
	assert.Equal(t, 10, st.TotalStudents)
	assert.Equal(t, 2, st.TotalTutors)
	assert.Equal(t, 3, st.TotalAttendances)
	assert.Equal(t, []NameCount{{Name: "Prof. Carlos", Count: 2}, {Name: "Prof. Ana", Count: 1}}, st.ByTutor)
	assert.Equal(t, []NameCount{
		{Name: "Pessoal", Count: 1}, {Name: "Acadêmica", Count: 1}, {Name: "Profissional", Count: 1},
	}, st.ByDimension)

	require.Len(t, st.TopStudents, 10)
	assert.Equal(t, 1, st.TopStudents[0].Count)
	assert.Equal(t, 0, st.TopStudents[9].Count)

	require.Len(t, st.Birthdays, 1)
	assert.Equal(t, "ALU001", st.Birthdays[0].ID)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "joao acucar", fold("João Açúcar"))
	assert.True(t, strings.Contains(fold("Fernanda Rocha"), fold("FERNANDA")))
}
