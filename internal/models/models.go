package models

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleTutor Role = "TUTOR"
)

// Kind names the entity collections kept by the application.
type Kind string

const (
	KindUser       Kind = "user"
	KindStudent    Kind = "student"
	KindAttendance Kind = "attendance"
)

type User struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Role     Role    `json:"role"`
	Photo    *string `json:"photo,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether login as u requires a password.
func (u User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// StudentSummary is the reduced projection loaded in bulk at startup.
type StudentSummary struct {
	ID        string `json:"id"`
	TutorID   string `json:"tutorId"`
	Name      string `json:"name"`
	Series    string `json:"series"` // e.g. "1ºSérie A"
	BirthDate string `json:"birthDate"`
}

type DocType string

const (
	DocImage DocType = "image"
	DocPDF   DocType = "pdf"
	DocText  DocType = "text"
)

// StudentDetail is the full projection, fetched one record at a time.
type StudentDetail struct {
	StudentSummary

	PhoneStudent    string  `json:"phoneStudent"`
	PhoneGuardian   string  `json:"phoneGuardian"`
	SchoolsAttended string  `json:"schoolsAttended"`
	Photo           *string `json:"photo,omitempty"`

	// Family
	FatherName        string `json:"fatherName"`
	FatherAge         string `json:"fatherAge"`
	FatherJob         string `json:"fatherJob"`
	MotherName        string `json:"motherName"`
	MotherAge         string `json:"motherAge"`
	MotherJob         string `json:"motherJob"`
	Siblings          string `json:"siblings"`
	LivingArrangement string `json:"livingArrangement"`

	// Resources and routine
	HasDevice        []string `json:"hasDevice"`
	HasInternet      bool     `json:"hasInternet"`
	HasPet           bool     `json:"hasPet"`
	PetDetails       *string  `json:"petDetails,omitempty"`
	CoursesExternal  bool     `json:"coursesExternal"`
	CourseDetails    *string  `json:"courseDetails,omitempty"`
	StudyAtHome      bool     `json:"studyAtHome"`
	StudyTime        *string  `json:"studyTime,omitempty"`
	LikesReading     bool     `json:"likesReading"`
	BookType         *string  `json:"bookType,omitempty"`
	Sports           bool     `json:"sports"`
	SportDetails     *string  `json:"sportDetails,omitempty"`
	LeisureActivity  string   `json:"leisureActivity"`
	DislikesActivity string   `json:"dislikesActivity"`
	SleepTime        string   `json:"sleepTime"`
	WakeTime         string   `json:"wakeTime"`
	LifeProject      string   `json:"lifeProject"`

	Roles []string `json:"roles"`

	PerformanceDoc     *string  `json:"performanceDoc,omitempty"`
	PerformanceDocType *DocType `json:"performanceDocType,omitempty"`
}

// Summary drops everything but the reduced projection.
func (s StudentDetail) Summary() StudentSummary {
	return s.StudentSummary
}

// NewStudentDetail upgrades a summary to a detail with every other field at its default.
func NewStudentDetail(s StudentSummary) StudentDetail {
	return StudentDetail{
		StudentSummary: s,
		HasDevice:      []string{},
		Roles:          []string{},
	}
}

type Dimension string

const (
	DimensionCognitive      Dimension = "Cognitiva"
	DimensionSocioEmotional Dimension = "Socioemocional"
	DimensionBehavioral     Dimension = "Comportamental"
	DimensionPersonal       Dimension = "Pessoal"
	DimensionAcademic       Dimension = "Acadêmica"
	DimensionProfessional   Dimension = "Profissional"
)

// FormDimensions are the dimensions offered when logging a new attendance.
var FormDimensions = []Dimension{DimensionPersonal, DimensionAcademic, DimensionProfessional}

const DefaultDimension = DimensionAcademic

type Attendance struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	TutorID     string    `json:"tutorId"`
	TutorName   string    `json:"tutorName"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Dimension   Dimension `json:"dimension"`
	Subject     string    `json:"subject"`
	Notes       string    `json:"notes"`
}

type AccessAction string

const (
	ActionLogin  AccessAction = "login"
	ActionLogout AccessAction = "logout"
)

var (
	SeriesOptions = []string{"6ºSérie", "7ºSérie", "8ºSérie", "9ºSérie", "1ºSérie", "2ºSérie", "3ºSérie"}
	ClassLetters  = []string{"A", "B", "C", "D", "E"}
)

const (
	AllSeries         = "Todas"
	UnknownStudent    = "Desconhecido"
	UnassignedTutor   = "Não atribuído"
	OtherTutorsBucket = "OUTROS"
)

// ChatState is the in-progress conversation of one chat with the bot.
type ChatState struct {
	ChatID      int64
	State       string
	TempData    map[string]interface{}
	LastUpdated time.Time
}
