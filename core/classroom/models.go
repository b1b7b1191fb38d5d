package classroom

import "time"

type Classroom struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	InstrumentIDs []int     `json:"instrument_ids"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type NewClassroom struct {
	Name string
}

type UpdateClassroom struct {
	ID   int
	Name string
}

// SetInstruments replaces the instruments available in a classroom.
type SetInstruments struct {
	ClassroomID   int
	InstrumentIDs []int
}
