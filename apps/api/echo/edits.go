package echoapi

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
	"github.com/trezcool/tdm/core/optimistic"
)

const invalidFormText = "Invalid form data"

// editKey identifies a single edit request of a row. Concurrent edits of the same row get their
// own records and the last commit wins.
type editKey struct {
	ID  int
	Seq uint64
}

var editSeq atomic.Uint64

// editRecord runs one edit of row id through c: the row shows pending while commit runs, then
// either the confirmed value or, when commit fails, the last known good one. The record is
// dropped once the edit is over.
func editRecord[V any](c *optimistic.Controller[editKey, V], id int, current, pending V, commit func() (V, error)) (V, error) {
	k := editKey{ID: id, Seq: editSeq.Add(1)}
	defer c.Forget(k)

	c.Load(k, current)
	if err := c.Edit(k); err != nil {
		return current, err
	}
	if err := c.Submit(k, pending); err != nil {
		return current, err
	}

	confirmed, err := commit()
	if err != nil {
		_ = c.Fail(k, err)
		_ = c.Revert(k)
		display, _ := c.Display(k)
		return display, err
	}
	_ = c.Settle(k, confirmed)
	display, _ := c.Display(k)
	return display, nil
}

func invalidReply(errs form.Errors) actionReply {
	return actionReply{Msg: invalidFormText, Error: errs}
}

func notFoundReply(kind string, id int) actionReply {
	msg := fmt.Sprintf("%s %d not found", kind, id)
	return actionReply{Msg: msg, Error: msg}
}

// failedEditReply maps an edit error to a soft reply; ok is false for unexpected errors.
func failedEditReply(kind string, id int, err, notFound error, display interface{}) (actionReply, bool) {
	if errors.Cause(err) == notFound {
		return notFoundReply(kind, id), true
	}
	if vErr, ok := core.AsValidationError(err); ok {
		reply := invalidReply(form.FromValidationError(vErr))
		reply.Display = display
		return reply, true
	}
	return actionReply{}, false
}

func deletedReply(noun string, ids []int) actionReply {
	return actionReply{Msg: fmt.Sprintf("%d %s deleted", len(ids), noun), Result: ids}
}
