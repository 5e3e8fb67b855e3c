package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

type MockClient struct {
	mock.Mock
	Client
}

func (m *MockClient) FetchActivityConfig(ctx context.Context, courseID, activityID int64) (*models.ActivityConfig, error) {
	args := m.Called(ctx, courseID, activityID)
	cfg, _ := args.Get(0).(*models.ActivityConfig)
	return cfg, args.Error(1)
}

func (m *MockClient) GetAccessInfo(ctx context.Context, activityID int64, offline, ignoreCache bool) (*models.AccessInfo, error) {
	args := m.Called(ctx, activityID, offline, ignoreCache)
	info, _ := args.Get(0).(*models.AccessInfo)
	return info, args.Error(1)
}

func newCachedClient(t *testing.T, inner Client) *CachedClient {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedClient(inner, cache.NewRedisCache(rdb, "engine:", logger), time.Hour, logger)
}

func TestCachedClient_FetchActivityConfig_FallsBackOnTransportError(t *testing.T) {
	inner := new(MockClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	cfg := &models.ActivityConfig{ID: 12, CourseID: 2, Kind: models.KindQuiz, NavigationMode: models.NavigationFree}

	inner.On("FetchActivityConfig", ctx, int64(2), int64(12)).Return(cfg, nil).Once()
	got, err := client.FetchActivityConfig(ctx, 2, 12)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	inner.On("FetchActivityConfig", ctx, int64(2), int64(12)).
		Return(nil, apperrors.NewTransportError("fetch config", errors.New("no route to host"))).Once()
	got, err = client.FetchActivityConfig(ctx, 2, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.ID)
	assert.Equal(t, models.KindQuiz, got.Kind)

	inner.AssertExpectations(t)
}

func TestCachedClient_FetchActivityConfig_ValidationErrorIsNotMasked(t *testing.T) {
	inner := new(MockClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	rejected := apperrors.NewValidationErrorWithRule("activity_id", "no access", "nopermission", int64(12))

	inner.On("FetchActivityConfig", ctx, int64(2), int64(12)).Return(nil, rejected)

	_, err := client.FetchActivityConfig(ctx, 2, 12)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCachedClient_FetchActivityConfig_MissReturnsOriginalError(t *testing.T) {
	inner := new(MockClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	transport := apperrors.NewTransportError("fetch config", errors.New("timeout"))

	inner.On("FetchActivityConfig", ctx, int64(2), int64(99)).Return(nil, transport)

	_, err := client.FetchActivityConfig(ctx, 2, 99)
	assert.ErrorIs(t, err, transport)
}

func TestCachedClient_GetAccessInfo_OfflinePrefersCache(t *testing.T) {
	inner := new(MockClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	info := &models.AccessInfo{CanAttempt: true, PreflightRequired: true, PreflightFields: []string{"quizpassword"}}

	inner.On("GetAccessInfo", ctx, int64(12), false, false).Return(info, nil).Once()
	_, err := client.GetAccessInfo(ctx, 12, false, false)
	require.NoError(t, err)

	// served from cache, the inner client is not called again
	got, err := client.GetAccessInfo(ctx, 12, true, false)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	// ignoreCache goes to the server
	fresh := &models.AccessInfo{CanAttempt: false}
	inner.On("GetAccessInfo", ctx, int64(12), true, true).Return(fresh, nil).Once()
	got, err = client.GetAccessInfo(ctx, 12, true, true)
	require.NoError(t, err)
	assert.False(t, got.CanAttempt)

	inner.AssertExpectations(t)
}

func TestCachedClient_Invalidate(t *testing.T) {
	inner := new(MockClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	info := &models.AccessInfo{CanAttempt: true}

	inner.On("GetAccessInfo", ctx, int64(12), false, false).Return(info, nil)
	_, err := client.GetAccessInfo(ctx, 12, false, false)
	require.NoError(t, err)

	require.NoError(t, client.Invalidate(ctx, 12))

	inner.On("GetAccessInfo", ctx, int64(12), true, false).Return(info, nil).Once()
	_, err = client.GetAccessInfo(ctx, 12, true, false)
	require.NoError(t, err)
	inner.AssertExpectations(t)
}
