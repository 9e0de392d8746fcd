// Package testutil wires the ledger against an in-memory sqlite database.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory database with the full schema. The pool
// is pinned to one connection so every query sees the same memory store.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("ledger_%d", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	stripRowLocks(t, db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(db))
	return db
}

// stripRowLocks removes FOR UPDATE, which sqlite rejects.
func stripRowLocks(t *testing.T, db *gorm.DB) {
	t.Helper()
	strip := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if !strings.Contains(sql, "FOR UPDATE") {
			return
		}
		sql = strings.ReplaceAll(sql, " FOR UPDATE", "")
		d.Statement.SQL.Reset()
		d.Statement.SQL.WriteString(sql)
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("testutil:strip_row_locks", strip))
	require.NoError(t, db.Callback().Row().Before("gorm:row").Register("testutil:strip_row_locks_row", strip))
}

// NewIDGen returns a snowflake node for tests.
func NewIDGen(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// NewClock returns a fake clock pinned to a fixed instant.
func NewClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
}
