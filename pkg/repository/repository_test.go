package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID     int64 `gorm:"primaryKey"`
	Kind   string
	Rank   int
	Active bool
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestStoreReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	var store Store[widget]

	require.NoError(t, store.Insert(ctx, db, &widget{ID: 1, Kind: "a", Rank: 2, Active: true}))
	require.NoError(t, store.Insert(ctx, db, &widget{ID: 2, Kind: "a", Rank: 1, Active: true}))
	require.NoError(t, store.Insert(ctx, db, &widget{ID: 3, Kind: "b", Rank: 3, Active: true}))

	found, err := store.Find(ctx, db, option.Where("kind = ?", "a"), option.OrderBy("rank asc"))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(2), found[0].ID)

	count, err := store.Count(ctx, db, option.Where("kind = ?", "a"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	missing, err := store.ByID(ctx, db, 99, false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.UpdateColumns(ctx, db, 3, map[string]any{"rank": 9, "active": false}))
	got, err := store.ByID(ctx, db, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Rank)
	assert.False(t, got.Active)

	require.NoError(t, store.Delete(ctx, db, 3))
	got, err = store.ByID(ctx, db, 3, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorePageFetchesLookAhead(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	var store Store[widget]
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Insert(ctx, db, &widget{ID: i, Kind: "w"}))
	}

	page := pagination.Pagination{Limit: 2, Offset: 1}
	rows, err := store.Page(ctx, db, page, "id desc")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(4), rows[0].ID)

	rows, info := pagination.Trim(rows, page)
	assert.Len(t, rows, 2)
	assert.True(t, info.HasMore)
}

func TestStoreInsideRolledBackTransaction(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	var store Store[widget]

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := store.Insert(ctx, tx, &widget{ID: 7, Kind: "tx"}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	got, err := store.ByID(ctx, db, 7, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}
