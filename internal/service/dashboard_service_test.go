package service

import (
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardCache(t *testing.T) {
	db := testutil.NewDB(t)
	cache := testutil.NewMemoryRedis()
	wallets := NewWalletService(db, repository.NewWalletRepository(db), repository.NewStudentRepository(db), nil, &config.Config{})
	svc := NewDashboardService(repository.NewDashboardRepository(db), repository.NewPaymentRepository(db), wallets, cache)
	testutil.CreateStudent(t, db, "first@example.com")

	dash, err := svc.GetDashboard(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.Counts.Students)
	_, cached := cache.Value(dashboardKey)
	require.True(t, cached)

	testutil.CreateStudent(t, db, "second@example.com")
	dash, err = svc.GetDashboard(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.Counts.Students, "served from cache")

	svc.Invalidate(t.Context())
	_, cached = cache.Value(dashboardKey)
	assert.False(t, cached)

	dash, err = svc.GetDashboard(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 2, dash.Counts.Students)
}

func TestDashboardWithoutCache(t *testing.T) {
	db := testutil.NewDB(t)
	wallets := NewWalletService(db, repository.NewWalletRepository(db), repository.NewStudentRepository(db), nil, &config.Config{})
	svc := NewDashboardService(repository.NewDashboardRepository(db), repository.NewPaymentRepository(db), wallets, nil)

	dash, err := svc.GetDashboard(t.Context())
	require.NoError(t, err)
	assert.Zero(t, dash.Counts.Students)
	svc.Invalidate(t.Context())

	testutil.CreateStudent(t, db, "live@example.com")
	dash, err = svc.GetDashboard(t.Context())
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.Counts.Students)
}
