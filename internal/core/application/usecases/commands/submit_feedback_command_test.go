package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSubmitFeedbackCommand(t *testing.T) {
	e := newEnv(t)

	t.Run("should copy the reactions", func(t *testing.T) {
		reactions := []order.Reaction{order.TastyFood}
		cmd, err := commands.NewSubmitFeedbackCommand(e.customer, kernel.NewUUID(), 5, "great", reactions)
		require.NoError(t, err)

		reactions[0] = order.GoodValue
		assert.Equal(t, []order.Reaction{order.TastyFood}, cmd.Reactions())
		assert.Equal(t, 5, cmd.Rating())
		assert.Equal(t, "great", cmd.Comment())
	})

	t.Run("should refuse a rating out of range", func(t *testing.T) {
		for _, rating := range []int{order.MinRating - 1, order.MaxRating + 1} {
			_, err := commands.NewSubmitFeedbackCommand(e.customer, kernel.NewUUID(), rating, "", nil)
			require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
		}
	})
}

func TestSubmitFeedbackCommandHandler_Handle_Success(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	o := e.received(t)
	cmd, err := commands.NewSubmitFeedbackCommand(e.customer, o.ID(), 4, "warm and quick", []order.Reaction{order.FastDelivery})
	require.NoError(t, err)

	e.openUoW(ctx)
	e.repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
	e.repo.On("Update", ctx, o).Return(nil).Once()
	e.uow.On("Commit", ctx).Return(nil).Once()
	e.publisher.On("Publish", ctx, ports.OrderUpdated{
		OrderID: o.ID(),
		Status:  order.Received,
		Version: o.Version(),
		Action:  "submit_feedback",
		At:      now,
	}).Return(nil).Once()

	h := commands.NewSubmitFeedbackCommandHandler(e.factory, e.machine, e.clock, e.observers())
	res, err := h.Handle(ctx, cmd)

	require.NoError(t, err)
	require.NotNil(t, res.Feedback())
	assert.Equal(t, 4, res.Feedback().Rating())
	assert.Equal(t, now, res.Feedback().SubmittedAt())
	e.assertExpectations(t)
}

func TestSubmitFeedbackCommandHandler_Handle_SecondSubmission(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	o := e.received(t)
	first, err := order.NewFeedback(5, "", nil, now)
	require.NoError(t, err)
	require.NoError(t, o.AddFeedback(first))

	cmd, err := commands.NewSubmitFeedbackCommand(e.customer, o.ID(), 1, "changed my mind", nil)
	require.NoError(t, err)

	e.openUoW(ctx)
	e.repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
	e.recorder.On("Rejected", "submit_feedback", mock.Anything).Once()

	h := commands.NewSubmitFeedbackCommandHandler(e.factory, e.machine, e.clock, e.observers())
	_, err = h.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Equal(t, 5, o.Feedback().Rating())
	e.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	e.assertExpectations(t)
}

func TestSubmitFeedbackCommandHandler_Handle_StoreDenied(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	o := e.received(t)
	cmd, err := commands.NewSubmitFeedbackCommand(e.store, o.ID(), 5, "", nil)
	require.NoError(t, err)

	e.openUoW(ctx)
	e.repo.On("Get", ctx, o.ID()).Return(o, nil).Once()
	e.recorder.On("Rejected", "submit_feedback", mock.Anything).Once()

	h := commands.NewSubmitFeedbackCommandHandler(e.factory, e.machine, e.clock, e.observers())
	_, err = h.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Nil(t, o.Feedback())
	e.assertExpectations(t)
}

func TestSubmitFeedbackCommandHandler_Handle_UnknownReaction(t *testing.T) {
	ctx := t.Context()
	e := newEnv(t)
	cmd, err := commands.NewSubmitFeedbackCommand(e.customer, kernel.NewUUID(), 3, "", []order.Reaction{"meh"})
	require.NoError(t, err)

	e.recorder.On("Rejected", "submit_feedback", mock.Anything).Once()

	h := commands.NewSubmitFeedbackCommandHandler(e.factory, e.machine, e.clock, e.observers())
	_, err = h.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	e.factory.AssertNotCalled(t, "Create")
	e.assertExpectations(t)
}
