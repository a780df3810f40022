package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/mocks"
)

func TestSweepUsesRetentionCutoff(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("DeleteSoftDeletedBefore", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		want := time.Now().Add(-retention)
		return cutoff.Sub(want).Abs() < time.Minute
	})).Return(int64(2), nil).Once()

	NewSweeper(users).Sweep(context.Background())
	users.AssertExpectations(t)
}

func TestSweepToleratesRepositoryError(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("DeleteSoftDeletedBefore", mock.Anything, mock.Anything).
		Return(int64(0), context.DeadlineExceeded).Once()

	require.NotPanics(t, func() {
		NewSweeper(users).Sweep(context.Background())
	})
	users.AssertExpectations(t)
}
