package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/internal/statement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]domain.LedgerInvoice, error) {
	return r.fetch(db.WithContext(ctx).Where("student_id = ?", studentID))
}

func (r *repo) ListBySchool(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.LedgerInvoice, error) {
	return r.fetch(db.WithContext(ctx).
		Where("student_id IN (?)", db.Table("students").Select("id").Where("school_id = ?", schoolID)))
}

func (r *repo) fetch(stmt *gorm.DB) ([]domain.LedgerInvoice, error) {
	var invoices []domain.LedgerInvoice
	err := stmt.
		Where("status <> ?", settlement.StatusVoid).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at asc, id asc")
		}).
		Order("created_at desc, id desc").
		Find(&invoices).Error
	return invoices, err
}
