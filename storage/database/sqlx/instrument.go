package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/storage/database"
)

var instrumentOrderings = map[string]bool{"id": true, "name": true, "created_at": true}

type instrumentRow struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (row instrumentRow) instrument() instrument.Instrument {
	return instrument.Instrument{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: fromUnix(row.CreatedAt),
		UpdatedAt: fromUnix(row.UpdatedAt),
	}
}

type instrumentRepository struct {
	db core.DB
}

var _ instrument.Repository = (*instrumentRepository)(nil)

func NewInstrumentRepository(db core.DB) instrument.Repository {
	return &instrumentRepository{db: db}
}

func (repo instrumentRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error {
	exists, err := nameExists(ctx, repo.db, "instruments", name, excludedIDs)
	if err != nil {
		return errors.Wrap(err, "checking instrument name uniqueness")
	}
	if exists {
		return instrument.ErrNameExists
	}
	return nil
}

func (repo instrumentRepository) CreateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error) {
	q := repo.db.Rebind("INSERT INTO instruments (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id")
	if err := repo.db.GetContext(ctx, &inst.ID, q, inst.Name, unix(inst.CreatedAt), unix(inst.UpdatedAt)); err != nil {
		if database.IsUniqueViolation(err) {
			return instrument.Instrument{}, instrument.ErrNameExists
		}
		return instrument.Instrument{}, errors.Wrap(err, "inserting instrument")
	}
	return inst, nil
}

func (repo instrumentRepository) GetInstrumentByID(ctx context.Context, id int) (instrument.Instrument, error) {
	var row instrumentRow
	q := repo.db.Rebind("SELECT id, name, created_at, updated_at FROM instruments WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return instrument.Instrument{}, trapNoRowsErr(err, instrument.ErrNotFound, "finding instrument")
	}
	return row.instrument(), nil
}

func (repo instrumentRepository) QueryInstruments(ctx context.Context, ordering []core.DBOrdering) ([]instrument.Instrument, error) {
	var rows []instrumentRow
	q := "SELECT id, name, created_at, updated_at FROM instruments" + orderBy(ordering, instrumentOrderings, "name ASC")
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying instruments")
	}
	instruments := make([]instrument.Instrument, 0, len(rows))
	for _, row := range rows {
		instruments = append(instruments, row.instrument())
	}
	return instruments, nil
}

func (repo instrumentRepository) UpdateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error) {
	q := repo.db.Rebind("UPDATE instruments SET name = ?, updated_at = ? WHERE id = ? RETURNING id")
	var id int
	if err := repo.db.GetContext(ctx, &id, q, inst.Name, unix(inst.UpdatedAt), inst.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return instrument.Instrument{}, instrument.ErrNameExists
		}
		return instrument.Instrument{}, trapNoRowsErr(err, instrument.ErrNotFound, "updating instrument")
	}
	return inst, nil
}

func (repo instrumentRepository) DeleteInstrumentsByID(ctx context.Context, ids ...int) ([]int, error) {
	var deleted []int
	err := core.WithTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if err := deleteRelations(ctx, tx, ids,
			"DELETE FROM notes WHERE lesson_id IN (SELECT id FROM lessons WHERE instrument_id IN (?))",
			"DELETE FROM lessons WHERE instrument_id IN (?)",
			"DELETE FROM instruments_to_users WHERE instrument_id IN (?)",
			"DELETE FROM instruments_to_classrooms WHERE instrument_id IN (?)",
		); err != nil {
			return err
		}
		var err error
		deleted, err = deleteReturning(ctx, tx, "DELETE FROM instruments WHERE id IN (?) RETURNING id", ids)
		return errors.Wrap(err, "deleting instruments")
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
