package actor_test

import (
	"testing"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want actor.Role
	}{
		{"customer", actor.Customer},
		{"Store", actor.Store},
		{" DRIVER ", actor.Driver},
		{"admin", actor.Admin},
		{"guest", actor.Guest},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := actor.ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := actor.ParseRole("courier")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}

func TestRole_Validate(t *testing.T) {
	for _, r := range actor.Roles() {
		assert.NoError(t, r.Validate(), r.String())
	}
	assert.Error(t, actor.UnknownRole.Validate())
	assert.Error(t, actor.Role(42).Validate())
	assert.Equal(t, "unknown", actor.Role(42).String())
}

func TestNew(t *testing.T) {
	id := kernel.NewUUID()

	t.Run("identified_actor", func(t *testing.T) {
		a, err := actor.New(actor.Store, id)
		require.NoError(t, err)

		assert.NoError(t, a.Validate())
		assert.Equal(t, actor.Store, a.Role())
		assert.True(t, a.Is(id))
		assert.False(t, a.Is(kernel.NewUUID()))
		assert.Equal(t, "store:"+id.String(), a.String())
	})

	t.Run("missing_id", func(t *testing.T) {
		_, err := actor.New(actor.Driver, kernel.UUID{})
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
	})

	t.Run("guest_cannot_be_identified", func(t *testing.T) {
		_, err := actor.New(actor.Guest, id)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("invalid_role", func(t *testing.T) {
		_, err := actor.New(actor.UnknownRole, id)
		require.Error(t, err)
	})
}

func TestGuest(t *testing.T) {
	g := actor.NewGuest()

	assert.NoError(t, g.Validate())
	assert.True(t, g.IsGuest())
	assert.False(t, g.Is(kernel.UUID{}))
	assert.False(t, g.IsRef(nil))
	assert.Equal(t, "guest", g.String())

	var zero actor.Actor
	assert.ErrorIs(t, zero.Validate(), actor.ErrActorIsNotConstructed)
}

func TestActor_IsRef(t *testing.T) {
	id := kernel.NewUUID()
	a, err := actor.New(actor.Driver, id)
	require.NoError(t, err)

	assert.False(t, a.IsRef(nil))
	assert.True(t, a.IsRef(&id))
}
