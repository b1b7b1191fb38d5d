package instrument

import "time"

type Instrument struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewInstrument struct {
	Name string
}

type UpdateInstrument struct {
	ID   int
	Name string
}
