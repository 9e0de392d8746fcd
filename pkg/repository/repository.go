// Package repository holds the query plumbing shared by the per-entity
// repositories. Every call takes the *gorm.DB to run on, so the same code
// serves plain reads and open transactions.
package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
	"gorm.io/gorm"
)

// Store is stateless; the zero value is ready to use.
type Store[T any] struct{}

// First returns (nil, nil) when nothing matches.
func (Store[T]) First(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) (*T, error) {
	var row T
	if err := apply(db.WithContext(ctx).Model(new(T)), opts).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByID looks a row up by primary key, optionally under a row lock.
func (s Store[T]) ByID(ctx context.Context, db *gorm.DB, id any, lock bool) (*T, error) {
	opts := []option.QueryOption{option.Where("id = ?", id)}
	if lock {
		opts = append(opts, option.ForUpdate())
	}
	return s.First(ctx, db, opts...)
}

func (Store[T]) Find(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	err := apply(db.WithContext(ctx).Model(new(T)), opts).Find(&rows).Error
	return rows, err
}

// Page fetches one row past the window so pagination.Trim can report
// whether more exist.
func (s Store[T]) Page(ctx context.Context, db *gorm.DB, page pagination.Pagination, order string, opts ...option.QueryOption) ([]*T, error) {
	opts = append(opts,
		option.OrderBy(order),
		option.Limit(page.Limit+1),
		option.Offset(page.Offset),
	)
	return s.Find(ctx, db, opts...)
}

func (Store[T]) Insert(ctx context.Context, db *gorm.DB, row *T) error {
	return db.WithContext(ctx).Create(row).Error
}

// UpdateColumns writes the given columns, including zero values such as a
// cleared active flag.
func (Store[T]) UpdateColumns(ctx context.Context, db *gorm.DB, id any, columns map[string]any) error {
	return db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(columns).Error
}

func (Store[T]) Delete(ctx context.Context, db *gorm.DB, id any) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}

func (Store[T]) Count(ctx context.Context, db *gorm.DB, opts ...option.QueryOption) (int64, error) {
	var count int64
	err := apply(db.WithContext(ctx).Model(new(T)), opts).Count(&count).Error
	return count, err
}

func apply(db *gorm.DB, opts []option.QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
