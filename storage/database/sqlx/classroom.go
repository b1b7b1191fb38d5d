package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/storage/database"
)

const classroomLinks = "instruments_to_classrooms"

var classroomOrderings = map[string]bool{"id": true, "name": true, "created_at": true}

type classroomRow struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (row classroomRow) classroom(instrumentIDs []int) classroom.Classroom {
	if instrumentIDs == nil {
		instrumentIDs = []int{}
	}
	return classroom.Classroom{
		ID:            row.ID,
		Name:          row.Name,
		InstrumentIDs: instrumentIDs,
		CreatedAt:     fromUnix(row.CreatedAt),
		UpdatedAt:     fromUnix(row.UpdatedAt),
	}
}

type classroomRepository struct {
	db core.DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db core.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error {
	exists, err := nameExists(ctx, repo.db, "classrooms", name, excludedIDs)
	if err != nil {
		return errors.Wrap(err, "checking classroom name uniqueness")
	}
	if exists {
		return classroom.ErrNameExists
	}
	return nil
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	q := repo.db.Rebind("INSERT INTO classrooms (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id")
	if err := repo.db.GetContext(ctx, &cls.ID, q, cls.Name, unix(cls.CreatedAt), unix(cls.UpdatedAt)); err != nil {
		if database.IsUniqueViolation(err) {
			return classroom.Classroom{}, classroom.ErrNameExists
		}
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	cls.InstrumentIDs = []int{}
	return cls, nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, id int) (classroom.Classroom, error) {
	var row classroomRow
	q := repo.db.Rebind("SELECT id, name, created_at, updated_at FROM classrooms WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom")
	}
	links, err := loadInstruments(ctx, repo.db, classroomLinks, "classroom_id", id)
	if err != nil {
		return classroom.Classroom{}, err
	}
	return row.classroom(links[id]), nil
}

func (repo classroomRepository) QueryClassrooms(ctx context.Context, ordering []core.DBOrdering) ([]classroom.Classroom, error) {
	var rows []classroomRow
	q := "SELECT id, name, created_at, updated_at FROM classrooms" + orderBy(ordering, classroomOrderings, "name ASC")
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := loadInstruments(ctx, repo.db, classroomLinks, "classroom_id", ids...)
	if err != nil {
		return nil, err
	}

	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, row := range rows {
		classrooms = append(classrooms, row.classroom(links[row.ID]))
	}
	return classrooms, nil
}

func (repo classroomRepository) UpdateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	q := repo.db.Rebind("UPDATE classrooms SET name = ?, updated_at = ? WHERE id = ? RETURNING id")
	var id int
	if err := repo.db.GetContext(ctx, &id, q, cls.Name, unix(cls.UpdatedAt), cls.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return classroom.Classroom{}, classroom.ErrNameExists
		}
		return classroom.Classroom{}, trapNoRowsErr(err, classroom.ErrNotFound, "updating classroom")
	}
	return cls, nil
}

func (repo classroomRepository) SetClassroomInstruments(ctx context.Context, classroomID int, instrumentIDs []int) error {
	return core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		return setInstruments(ctx, tx, classroomLinks, "classroom_id", classroomID, instrumentIDs)
	})
}

// DeleteClassroomsByID also removes the classrooms' instrument links and lessons.
func (repo classroomRepository) DeleteClassroomsByID(ctx context.Context, ids ...int) ([]int, error) {
	var deleted []int
	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if err := deleteRelations(ctx, tx, ids,
			"DELETE FROM notes WHERE lesson_id IN (SELECT id FROM lessons WHERE classroom_id IN (?))",
			"DELETE FROM lessons WHERE classroom_id IN (?)",
			"DELETE FROM "+classroomLinks+" WHERE classroom_id IN (?)",
		); err != nil {
			return err
		}
		var err error
		deleted, err = deleteReturning(ctx, tx, "DELETE FROM classrooms WHERE id IN (?) RETURNING id", ids)
		return errors.Wrap(err, "deleting classrooms")
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
