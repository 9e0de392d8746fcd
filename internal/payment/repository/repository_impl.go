package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/payment/domain"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/pkg/db/option"
	"github.com/smallbiznis/schoolbilling/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	store repository.Store[domain.Payment]
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return r.store.Insert(ctx, db, payment)
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*domain.Payment, error) {
	return r.store.Find(ctx, db,
		option.Where("invoice_id = ?", invoiceID),
		option.OrderBy("paid_at asc, id asc"),
	)
}

func (r *repo) SumByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&domain.Payment{}).
		Select("SUM(amount)").
		Where("invoice_id = ?", invoiceID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return settlement.Normalize(total.Decimal), nil
}
