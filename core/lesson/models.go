package lesson

import "time"

// Lesson types
const (
	TypeSingle             = "single"
	TypeRecurrent          = "recurrent"
	TypeReplacementOrigin  = "replacement_origin"
	TypeReplacement        = "replacement"
	TypeSubstitutionOrigin = "substitution_origin"
	TypeSubstitution       = "substitution"
	TypeTrial              = "trial"
	TypeCanceled           = "canceled"
)

var AllTypes = []string{
	TypeSingle,
	TypeRecurrent,
	TypeReplacementOrigin,
	TypeReplacement,
	TypeSubstitutionOrigin,
	TypeSubstitution,
	TypeTrial,
	TypeCanceled,
}

type Lesson struct {
	ID           int       `json:"id"`
	StudentID    int       `json:"student_id"`
	TeacherID    int       `json:"teacher_id"`
	ReporterID   int       `json:"reporter_id"`
	InstrumentID int       `json:"instrument_id"`
	ClassroomID  int       `json:"classroom_id"`
	StartDate    time.Time `json:"start_date"` // UTC
	EndDate      time.Time `json:"end_date"`   // UTC
	Type         string    `json:"type"`
	OriginID     *int      `json:"origin_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Overlaps reports whether l shares any instant with [start, end).
func (l Lesson) Overlaps(start, end time.Time) bool {
	return l.StartDate.Before(end) && l.EndDate.After(start)
}

type Note struct {
	ID         int       `json:"id"`
	Text       string    `json:"text"`
	LessonID   int       `json:"lesson_id"`
	ReporterID int       `json:"reporter_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewLesson contains information needed to schedule a lesson.
// ReporterID is the user scheduling it.
type NewLesson struct {
	StudentID    int
	TeacherID    int
	ReporterID   int
	InstrumentID int
	ClassroomID  int
	StartDate    time.Time
	EndDate      time.Time
	Type         string
	OriginID     int
}

// UpdateLesson holds the fields to change on lesson ID; zero values keep the current ones.
type UpdateLesson struct {
	ID           int
	StudentID    int
	TeacherID    int
	InstrumentID int
	ClassroomID  int
	StartDate    time.Time
	EndDate      time.Time
	Type         string
}

// Apply copies the non zero fields of ul onto l.
func (ul UpdateLesson) Apply(l *Lesson) {
	if ul.StudentID != 0 {
		l.StudentID = ul.StudentID
	}
	if ul.TeacherID != 0 {
		l.TeacherID = ul.TeacherID
	}
	if ul.InstrumentID != 0 {
		l.InstrumentID = ul.InstrumentID
	}
	if ul.ClassroomID != 0 {
		l.ClassroomID = ul.ClassroomID
	}
	if !ul.StartDate.IsZero() {
		l.StartDate = ul.StartDate
	}
	if !ul.EndDate.IsZero() {
		l.EndDate = ul.EndDate
	}
	if ul.Type != "" {
		l.Type = ul.Type
	}
}

type NewNote struct {
	LessonID   int
	Text       string
	ReporterID int
}

type QueryFilter struct {
	From      *time.Time
	To        *time.Time
	StudentID int
	TeacherID int
}
