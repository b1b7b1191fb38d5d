// Package sqlxrepos implements the domain repositories with sqlx. Queries use "?" placeholders
// and are rebound for the connected driver.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
)

// in expands the slice arguments of query and rebinds it for exec's driver.
func in(exec core.DBExecutor, query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding query")
	}
	return exec.Rebind(q), a, nil
}

// trapNoRowsErr maps sql.ErrNoRows to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// orderBy renders ordering, keeping only the allowed columns.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

func unix(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// deleteReturning runs a DELETE ... RETURNING id and collects the ids.
func deleteReturning(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]int, error) {
	q, a, err := in(exec, query, args...)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0)
	if err = exec.SelectContext(ctx, &ids, q, a...); err != nil {
		return nil, err
	}
	return ids, nil
}

type link struct {
	OwnerID      int `db:"owner_id"`
	InstrumentID int `db:"instrument_id"`
}

// setInstruments replaces the instruments linked to ownerID in table. Unknown instruments are skipped.
func setInstruments(ctx context.Context, exec core.DBExecutor, table, ownerCol string, ownerID int, instrumentIDs []int) error {
	del := exec.Rebind("DELETE FROM " + table + " WHERE " + ownerCol + " = ?")
	if _, err := exec.ExecContext(ctx, del, ownerID); err != nil {
		return errors.Wrap(err, "unlinking instruments")
	}
	if len(instrumentIDs) == 0 {
		return nil
	}
	q, args, err := in(exec,
		"INSERT INTO "+table+" ("+ownerCol+", instrument_id) SELECT ?, id FROM instruments WHERE id IN (?)",
		ownerID, instrumentIDs)
	if err != nil {
		return err
	}
	if _, err = exec.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "linking instruments")
	}
	return nil
}

// loadInstruments returns the instrument ids linked to each of ownerIDs, ordered.
func loadInstruments(ctx context.Context, exec core.DBExecutor, table, ownerCol string, ownerIDs ...int) (map[int][]int, error) {
	byOwner := make(map[int][]int, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return byOwner, nil
	}
	q, args, err := in(exec,
		"SELECT "+ownerCol+" AS owner_id, instrument_id FROM "+table+" WHERE "+ownerCol+" IN (?) ORDER BY instrument_id",
		ownerIDs)
	if err != nil {
		return nil, err
	}
	var links []link
	if err = exec.SelectContext(ctx, &links, q, args...); err != nil {
		return nil, errors.Wrap(err, "loading instruments")
	}
	for _, l := range links {
		byOwner[l.OwnerID] = append(byOwner[l.OwnerID], l.InstrumentID)
	}
	return byOwner, nil
}

// nameExists reports whether table has a row named name, other than excludedIDs.
func nameExists(ctx context.Context, exec core.DBExecutor, table, name string, excludedIDs []int) (bool, error) {
	query := "SELECT COUNT(*) FROM " + table + " WHERE name = ?"
	args := []interface{}{name}
	if len(excludedIDs) > 0 {
		query += " AND id NOT IN (?)"
		args = append(args, excludedIDs)
	}
	q, args, err := in(exec, query, args...)
	if err != nil {
		return false, err
	}
	var count int
	if err = exec.GetContext(ctx, &count, q, args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

// deleteRelations runs each statement with ids bound to its single "IN (?)".
func deleteRelations(ctx context.Context, exec core.DBExecutor, ids []int, statements ...string) error {
	for _, stmt := range statements {
		q, args, err := in(exec, stmt, ids)
		if err != nil {
			return err
		}
		if _, err = exec.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrap(err, "deleting relations")
		}
	}
	return nil
}
