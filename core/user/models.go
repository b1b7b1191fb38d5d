package user

import (
	"encoding/gob"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleStudent  = "student"
	RoleTeacher  = "teacher"
	RoleEmployee = "employee"
)

var (
	AllRoles = []string{RoleAdmin, RoleStudent, RoleTeacher, RoleEmployee}

	// StaffRoles may manage the school's catalog, students and teachers.
	StaffRoles = []string{RoleAdmin, RoleEmployee}

	Roles = []Role{
		{Name: "Administrador", Value: RoleAdmin},
		{Name: "Empleado", Value: RoleEmployee},
		{Name: "Profesor", Value: RoleTeacher},
		{Name: "Alumno", Value: RoleStudent},
	}

	dummyHash     []byte
	dummyHashOnce sync.Once
)

func init() {
	// identities travel inside the session cookie
	gob.Register(Identity{})
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Lastname       string     `json:"lastname"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Birthdate      *time.Time `json:"birthdate,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	InstrumentIDs  []int      `json:"instrument_ids"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

func (u User) HasRole(roles ...string) bool {
	return hasRole(u.Role, roles)
}

// Identity returns the projection of u stored in sessions.
func (u User) Identity() Identity {
	return Identity{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Lastname:       u.Lastname,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
	}
}

// Identity is the part of a User that is safe to carry in a session:
// no password hash, no birthdate, no phone number, no timestamps.
type Identity struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Lastname       string `json:"lastname"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

func (i Identity) HasRole(roles ...string) bool {
	return hasRole(i.Role, roles)
}

func (i Identity) FullName() string {
	return strings.TrimSpace(i.Name + " " + i.Lastname)
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Credential is the password of a user. Only its bcrypt hash is ever stored.
type Credential struct {
	UserID int
	Hash   []byte
}

func NewCredential(userID int, pwd string) (Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, err
	}
	return Credential{UserID: userID, Hash: hash}, nil
}

// Verify compares pwd with the stored hash in constant time.
func (c Credential) Verify(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.Hash, []byte(pwd))
}

// burnCompare runs a comparison against a throwaway hash so that unknown accounts cost as
// much as wrong passwords.
func burnCompare(pwd string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tdm-dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
}

// Credentials are the login form values.
type Credentials struct {
	Email    string
	Password string
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string
	Lastname        string
	Email           string
	Role            string
	Password        string
	PasswordConfirm string
	Birthdate       *time.Time
	PhoneNumber     string
	ProfilePicture  string
	InstrumentIDs   []int
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty strings keep the current values.
type UpdateUser struct {
	ID              int
	Name            string
	Lastname        string
	Email           string
	Birthdate       *time.Time
	PhoneNumber     string
	ProfilePicture  string
	Password        string
	PasswordConfirm string
	InstrumentIDs   []int
	SetInstruments  bool
}

type ResetPassword struct {
	Token           string
	Password        string
	PasswordConfirm string
}

type QueryFilter struct {
	Role   string
	Search string
}

func (qf *QueryFilter) Clean() {
	qf.Search = strings.TrimSpace(qf.Search)
}
