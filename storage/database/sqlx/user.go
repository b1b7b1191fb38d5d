package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/user"
	"github.com/trezcool/tdm/storage/database"
)

const (
	userColumns = "id, name, lastname, email, role, birthdate, phone_number, profile_picture, created_at, updated_at"
	userLinks   = "instruments_to_users"
	birthLayout = "2006-01-02"
)

var userOrderings = map[string]bool{"id": true, "name": true, "lastname": true, "email": true, "created_at": true}

type userRow struct {
	ID             int         `db:"id"`
	Name           string      `db:"name"`
	Lastname       string      `db:"lastname"`
	Email          string      `db:"email"`
	Role           string      `db:"role"`
	Birthdate      null.String `db:"birthdate"`
	PhoneNumber    null.String `db:"phone_number"`
	ProfilePicture null.String `db:"profile_picture"`
	CreatedAt      int64       `db:"created_at"`
	UpdatedAt      int64       `db:"updated_at"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:             usr.ID,
		Name:           usr.Name,
		Lastname:       usr.Lastname,
		Email:          usr.Email,
		Role:           usr.Role,
		PhoneNumber:    null.NewString(usr.PhoneNumber, usr.PhoneNumber != ""),
		ProfilePicture: null.NewString(usr.ProfilePicture, usr.ProfilePicture != ""),
		CreatedAt:      unix(usr.CreatedAt),
		UpdatedAt:      unix(usr.UpdatedAt),
	}
	if usr.Birthdate != nil {
		row.Birthdate = null.StringFrom(usr.Birthdate.Format(birthLayout))
	}
	return row
}

func (row userRow) user(instrumentIDs []int) user.User {
	if instrumentIDs == nil {
		instrumentIDs = []int{}
	}
	usr := user.User{
		ID:             row.ID,
		Name:           row.Name,
		Lastname:       row.Lastname,
		Email:          row.Email,
		Role:           row.Role,
		PhoneNumber:    row.PhoneNumber.String,
		ProfilePicture: row.ProfilePicture.String,
		InstrumentIDs:  instrumentIDs,
		CreatedAt:      fromUnix(row.CreatedAt),
		UpdatedAt:      fromUnix(row.UpdatedAt),
	}
	if row.Birthdate.Valid {
		if t, err := time.Parse(birthLayout, row.Birthdate.String); err == nil {
			usr.Birthdate = &t
		}
	}
	return usr
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

// trapEmailErr maps a unique violation on users.email to user.ErrEmailExists.
func trapEmailErr(err error, msg string) error {
	if database.IsUniqueViolation(err) {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	query := "SELECT COUNT(*) FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedIDs) > 0 {
		query += " AND id NOT IN (?)"
		args = append(args, excludedIDs)
	}
	q, args, err := in(repo.db, query, args...)
	if err != nil {
		return err
	}
	var count int
	if err = repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, pwdHash []byte) (user.User, error) {
	row := newUserRow(usr)
	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		q := tx.Rebind(`INSERT INTO users (name, lastname, email, role, birthdate, phone_number, profile_picture, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := tx.GetContext(ctx, &row.ID, q,
			row.Name, row.Lastname, row.Email, row.Role, row.Birthdate, row.PhoneNumber, row.ProfilePicture,
			row.CreatedAt, row.UpdatedAt)
		if err != nil {
			return trapEmailErr(err, "inserting user")
		}
		if pwdHash != nil {
			q = tx.Rebind("INSERT INTO passwords (user_id, hash) VALUES (?, ?)")
			if _, err = tx.ExecContext(ctx, q, row.ID, string(pwdHash)); err != nil {
				return errors.Wrap(err, "inserting password")
			}
		}
		return setInstruments(ctx, tx, userLinks, "user_id", row.ID, usr.InstrumentIDs)
	})
	if err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(ctx, row.ID)
}

func (repo userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	links, err := loadInstruments(ctx, repo.db, userLinks, "user_id", row.ID)
	if err != nil {
		return user.User{}, err
	}
	return row.user(links[row.ID]), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, "id = ?", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email = ?", email)
}

func (repo userRepository) GetCredential(ctx context.Context, userID int) (user.Credential, error) {
	var hash string
	q := repo.db.Rebind("SELECT hash FROM passwords WHERE user_id = ?")
	if err := repo.db.GetContext(ctx, &hash, q, userID); err != nil {
		return user.Credential{}, trapNoRowsErr(err, user.ErrCredentialNotFound, "finding credential")
	}
	return user.Credential{UserID: userID, Hash: []byte(hash)}, nil
}

func (repo userRepository) SetCredential(ctx context.Context, cred user.Credential) error {
	q := repo.db.Rebind(`INSERT INTO passwords (user_id, hash) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET hash = excluded.hash`)
	if _, err := repo.db.ExecContext(ctx, q, cred.UserID, string(cred.Hash)); err != nil {
		return errors.Wrap(err, "setting credential")
	}
	return nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}
	// users with name, lastname or email matching the search keyword
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(lastname) LIKE ? OR email LIKE ?)")
		args = append(args, val, val, val)
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy(ordering, userOrderings, "lastname ASC, name ASC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := loadInstruments(ctx, repo.db, userLinks, "user_id", ids...)
	if err != nil {
		return nil, err
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user(links[row.ID]))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := newUserRow(usr)
	q := repo.db.Rebind(`UPDATE users SET name = ?, lastname = ?, email = ?, birthdate = ?, phone_number = ?,
		profile_picture = ?, updated_at = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		row.Name, row.Lastname, row.Email, row.Birthdate, row.PhoneNumber, row.ProfilePicture, row.UpdatedAt, row.ID)
	if err != nil {
		return user.User{}, trapEmailErr(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetUserInstruments(ctx context.Context, userID int, instrumentIDs []int) error {
	return core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		return setInstruments(ctx, tx, userLinks, "user_id", userID, instrumentIDs)
	})
}

// DeleteUsersByID removes the users of role among ids along with their password, instrument links,
// lessons and notes.
func (repo userRepository) DeleteUsersByID(ctx context.Context, role string, ids ...int) ([]int, error) {
	var deleted []int
	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		q, args, err := in(tx, "SELECT id FROM users WHERE role = ? AND id IN (?)", role, ids)
		if err != nil {
			return err
		}
		var existing []int
		if err = tx.SelectContext(ctx, &existing, q, args...); err != nil {
			return errors.Wrap(err, "finding users")
		}
		if len(existing) == 0 {
			deleted = []int{}
			return nil
		}

		cleanups := []string{
			"DELETE FROM notes WHERE lesson_id IN (SELECT id FROM lessons WHERE student_id IN (?) OR teacher_id IN (?))",
			"DELETE FROM lessons WHERE student_id IN (?) OR teacher_id IN (?)",
		}
		for _, cleanup := range cleanups {
			if q, args, err = in(tx, cleanup, existing, existing); err != nil {
				return err
			}
			if _, err = tx.ExecContext(ctx, q, args...); err != nil {
				return errors.Wrap(err, "deleting lessons")
			}
		}
		err = deleteRelations(ctx, tx, existing,
			"DELETE FROM passwords WHERE user_id IN (?)",
			"DELETE FROM "+userLinks+" WHERE user_id IN (?)",
		)
		if err != nil {
			return err
		}

		deleted, err = deleteReturning(ctx, tx, "DELETE FROM users WHERE id IN (?) RETURNING id", existing)
		return errors.Wrap(err, "deleting users")
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
