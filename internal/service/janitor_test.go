package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCacheCleaner struct {
	mock.Mock
}

func (m *MockCacheCleaner) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestJanitorService_CleansBothCaches(t *testing.T) {
	embedding := new(MockCacheCleaner)
	response := new(MockCacheCleaner)
	svc := NewJanitorService(embedding, response)

	embedding.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(3), nil)
	response.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(1), nil)

	require.NoError(t, svc.CleanupExpiredCaches(context.Background()))
	embedding.AssertExpectations(t)
	response.AssertExpectations(t)
}

func TestJanitorService_OneFailureDoesNotBlockTheOther(t *testing.T) {
	embedding := new(MockCacheCleaner)
	response := new(MockCacheCleaner)
	svc := NewJanitorService(embedding, response)

	embedding.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), errors.New("table locked"))
	response.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(2), nil)

	err := svc.CleanupExpiredCaches(context.Background())
	assert.Error(t, err)

	// The response cache sweep still ran despite the embedding failure.
	response.AssertExpectations(t)
}

func TestJanitorService_BothSidesFail(t *testing.T) {
	embedding := new(MockCacheCleaner)
	response := new(MockCacheCleaner)
	svc := NewJanitorService(embedding, response)

	embedding.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), errors.New("embedding boom"))
	response.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), errors.New("response boom"))

	err := svc.CleanupExpiredCaches(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding cache cleanup failed")
	assert.Contains(t, err.Error(), "response cache cleanup failed")
}
