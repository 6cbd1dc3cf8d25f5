package users

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_CreateAndGet(t *testing.T) {
	r := NewSQLiteRepository(testdb.NewSQLite(t))
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	u, err := r.Create(ctx, &models.User{Name: "Alice", Email: "alice@example.com", CreatedAt: now})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	byEmail, err := r.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "Alice", byEmail.Name)
	assert.True(t, now.Equal(byEmail.CreatedAt), "created_at round trip: %v", byEmail.CreatedAt)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, byEmail, byID)
}

func TestSQLite_DuplicateEmail(t *testing.T) {
	db := testdb.NewSQLite(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{Name: "A", Email: "dup@example.com", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = r.Create(ctx, &models.User{Name: "B", Email: "dup@example.com", CreatedAt: time.Now()})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLite_NotFound(t *testing.T) {
	r := NewSQLiteRepository(testdb.NewSQLite(t))

	_, err := r.GetByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
