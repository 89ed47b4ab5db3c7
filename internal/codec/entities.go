package codec

import "tutorado/internal/models"

var Users = newCodec(
	text("id", func(u *models.User) *string { return &u.ID }),
	text("name", func(u *models.User) *string { return &u.Name }),
	text("role", func(u *models.User) *models.Role { return &u.Role }),
	optional("photo", func(u *models.User) **string { return &u.Photo }),
	optional("password", func(u *models.User) **string { return &u.Password }),
)

// StudentSummaries covers the reduced student projection used by the bulk load.
var StudentSummaries = newCodec(summaryFields[models.StudentSummary](func(s *models.StudentSummary) *models.StudentSummary { return s })...)

var Students = newCodec(append(
	summaryFields[models.StudentDetail](func(s *models.StudentDetail) *models.StudentSummary { return &s.StudentSummary }),
	text("phone_student", func(s *models.StudentDetail) *string { return &s.PhoneStudent }),
	text("phone_guardian", func(s *models.StudentDetail) *string { return &s.PhoneGuardian }),
	text("schools_attended", func(s *models.StudentDetail) *string { return &s.SchoolsAttended }),
	optional("photo", func(s *models.StudentDetail) **string { return &s.Photo }),
	text("father_name", func(s *models.StudentDetail) *string { return &s.FatherName }),
	text("father_age", func(s *models.StudentDetail) *string { return &s.FatherAge }),
	text("father_job", func(s *models.StudentDetail) *string { return &s.FatherJob }),
	text("mother_name", func(s *models.StudentDetail) *string { return &s.MotherName }),
	text("mother_age", func(s *models.StudentDetail) *string { return &s.MotherAge }),
	text("mother_job", func(s *models.StudentDetail) *string { return &s.MotherJob }),
	text("siblings", func(s *models.StudentDetail) *string { return &s.Siblings }),
	text("living_arrangement", func(s *models.StudentDetail) *string { return &s.LivingArrangement }),
	list("has_device", func(s *models.StudentDetail) *[]string { return &s.HasDevice }),
	flag("has_internet", func(s *models.StudentDetail) *bool { return &s.HasInternet }),
	flag("has_pet", func(s *models.StudentDetail) *bool { return &s.HasPet }),
	optional("pet_details", func(s *models.StudentDetail) **string { return &s.PetDetails }),
	flag("courses_external", func(s *models.StudentDetail) *bool { return &s.CoursesExternal }),
	optional("course_details", func(s *models.StudentDetail) **string { return &s.CourseDetails }),
	flag("study_at_home", func(s *models.StudentDetail) *bool { return &s.StudyAtHome }),
	optional("study_time", func(s *models.StudentDetail) **string { return &s.StudyTime }),
	flag("likes_reading", func(s *models.StudentDetail) *bool { return &s.LikesReading }),
	optional("book_type", func(s *models.StudentDetail) **string { return &s.BookType }),
	flag("sports", func(s *models.StudentDetail) *bool { return &s.Sports }),
	optional("sport_details", func(s *models.StudentDetail) **string { return &s.SportDetails }),
	text("leisure_activity", func(s *models.StudentDetail) *string { return &s.LeisureActivity }),
	text("dislikes_activity", func(s *models.StudentDetail) *string { return &s.DislikesActivity }),
	text("sleep_time", func(s *models.StudentDetail) *string { return &s.SleepTime }),
	text("wake_time", func(s *models.StudentDetail) *string { return &s.WakeTime }),
	text("life_project", func(s *models.StudentDetail) *string { return &s.LifeProject }),
	list("roles", func(s *models.StudentDetail) *[]string { return &s.Roles }),
	optional("performance_doc", func(s *models.StudentDetail) **string { return &s.PerformanceDoc }),
	optional("performance_doc_type", func(s *models.StudentDetail) **models.DocType { return &s.PerformanceDocType }),
)...)

var Attendances = newCodec(
	text("id", func(a *models.Attendance) *string { return &a.ID }),
	text("student_id", func(a *models.Attendance) *string { return &a.StudentID }),
	text("student_name", func(a *models.Attendance) *string { return &a.StudentName }),
	text("tutor_id", func(a *models.Attendance) *string { return &a.TutorID }),
	text("tutor_name", func(a *models.Attendance) *string { return &a.TutorName }),
	date("date", func(a *models.Attendance) *string { return &a.Date }),
	text("dimension", func(a *models.Attendance) *models.Dimension { return &a.Dimension }),
	text("subject", func(a *models.Attendance) *string { return &a.Subject }),
	text("notes", func(a *models.Attendance) *string { return &a.Notes }),
)

// summaryFields is shared by both student projections so the reduced
// columns are always a prefix of the full ones.
func summaryFields[T any](summary func(*T) *models.StudentSummary) []field[T] {
	return []field[T]{
		text("id", func(v *T) *string { return &summary(v).ID }),
		text("tutor_id", func(v *T) *string { return &summary(v).TutorID }),
		text("name", func(v *T) *string { return &summary(v).Name }),
		text("series", func(v *T) *string { return &summary(v).Series }),
		date("birth_date", func(v *T) *string { return &summary(v).BirthDate }),
	}
}
