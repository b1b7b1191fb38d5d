package optimistic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_happyPath(t *testing.T) {
	c := NewController[int, string]()
	c.Load(1, "Mozart")

	require.NoError(t, c.Edit(1))
	require.NoError(t, c.Submit(1, "Beethoven"))

	rec, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, Submitting, rec.State)
	assert.Equal(t, "Beethoven", rec.Display())

	// a refresh while submitting keeps showing the pending value
	c.Load(1, "Mozart")
	display, _ := c.Display(1)
	assert.Equal(t, "Beethoven", display)

	require.NoError(t, c.Settle(1, "Beethoven"))
	rec, _ = c.Get(1)
	assert.Equal(t, Viewing, rec.State)
	assert.Equal(t, "Beethoven", rec.Display())
}

func TestController_failedRevert(t *testing.T) {
	c := NewController[int, string]()
	c.Load(1, "Mozart")
	rejected := errors.New("El salón ya existe")

	require.NoError(t, c.Submit(1, "Bach"))
	require.NoError(t, c.Fail(1, rejected))

	rec, _ := c.Get(1)
	assert.Equal(t, Failed, rec.State)
	assert.Equal(t, "Mozart", rec.Display())
	assert.Equal(t, rejected, rec.Err)

	require.NoError(t, c.Revert(1))
	rec, _ = c.Get(1)
	assert.Equal(t, Viewing, rec.State)
	assert.Equal(t, "Mozart", rec.Display())
	assert.Empty(t, rec.Pending)
}

func TestController_invalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Controller[int, string])
		event func(c *Controller[int, string]) error
		from  State
	}{
		{
			name:  "settle while viewing",
			event: func(c *Controller[int, string]) error { return c.Settle(1, "x") },
			from:  Viewing,
		},
		{
			name:  "revert while viewing",
			event: func(c *Controller[int, string]) error { return c.Revert(1) },
			from:  Viewing,
		},
		{
			name:  "edit while submitting",
			setup: func(c *Controller[int, string]) { _ = c.Submit(1, "x") },
			event: func(c *Controller[int, string]) error { return c.Edit(1) },
			from:  Submitting,
		},
		{
			name: "submit while failed",
			setup: func(c *Controller[int, string]) {
				_ = c.Submit(1, "x")
				_ = c.Fail(1, errors.New("nope"))
			},
			event: func(c *Controller[int, string]) error { return c.Submit(1, "y") },
			from:  Failed,
		},
		{
			name:  "cancel while viewing",
			event: func(c *Controller[int, string]) error { return c.Cancel(1) },
			from:  Viewing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController[int, string]()
			c.Load(1, "Mozart")
			if tt.setup != nil {
				tt.setup(c)
			}
			err := tt.event(c)
			var invalid ErrInvalidTransition
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.from, invalid.From)
		})
	}
}

func TestController_Forget(t *testing.T) {
	c := NewController[int, string]()
	c.Load(1, "Mozart")
	c.Load(2, "Bach")
	require.Equal(t, 2, c.Len())

	c.Forget(1)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Forget(999)
	assert.Equal(t, 1, c.Len())
}
