// Package seed populates a ledger with demo schools, students, invoices and
// payments through the domain services.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
	invoicedomain "github.com/smallbiznis/schoolbilling/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/schoolbilling/internal/payment/domain"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Schools  schooldomain.Service
	Students studentdomain.Service
	Invoices invoicedomain.Service
	Payments paymentdomain.Service
}

// Summary counts what a run created.
type Summary struct {
	Schools  int
	Students int
	Invoices int
	Payments int
	Voided   int
	Skipped  int
}

type demoSchool struct {
	name     string
	country  string
	currency string
	domain   string
	tuition  string
	students []demoStudent
}

type demoStudent struct {
	first string
	last  string
	// paid lists payments applied to the tuition invoice, in order.
	paid []string
	void bool
}

var demoSchools = []demoSchool{
	{
		name: "Colegio Reforma", country: "MX", currency: "MXN", domain: "reforma.mx", tuition: "4500.00",
		students: []demoStudent{
			{first: "Sofia", last: "Hernandez", paid: []string{"4500.00"}},
			{first: "Diego", last: "Ramirez", paid: []string{"2000.00"}},
			{first: "Valeria", last: "Torres"},
		},
	},
	{
		name: "Gimnasio del Norte", country: "CO", currency: "COP", domain: "gimnasionorte.co", tuition: "850000.00",
		students: []demoStudent{
			{first: "Santiago", last: "Gomez", paid: []string{"400000.00", "450000.00"}},
			{first: "Isabella", last: "Martinez", void: true},
		},
	},
	{
		name: "Unidad Educativa Quito", country: "EC", currency: "USD", domain: "ueq.ec", tuition: "320.00",
		students: []demoStudent{
			{first: "Mateo", last: "Vera", paid: []string{"120.00"}},
			{first: "Camila", last: "Andrade"},
		},
	},
}

// Run creates the demo data set. Schools that already exist are skipped so
// the command can be rerun against the same database.
func Run(ctx context.Context, p Params, now time.Time) (Summary, error) {
	log := p.Log.Named("seed")
	var summary Summary

	for _, demo := range demoSchools {
		school, err := p.Schools.Create(ctx, schooldomain.CreateRequest{
			Name:     demo.name,
			Country:  demo.country,
			Currency: demo.currency,
		})
		if errors.Is(err, apperror.ErrAlreadyExists) {
			log.Info("school already seeded", zap.String("name", demo.name), zap.String("country", demo.country))
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("seed school %s: %w", demo.name, err)
		}
		summary.Schools++

		tuition, err := decimal.NewFromString(demo.tuition)
		if err != nil {
			return summary, fmt.Errorf("seed tuition %s: %w", demo.tuition, err)
		}

		for i, s := range demo.students {
			if err := seedStudent(ctx, p, &summary, school, s, tuition, now.AddDate(0, 1, i)); err != nil {
				return summary, err
			}
		}
	}

	log.Info("seed complete",
		zap.Int("schools", summary.Schools),
		zap.Int("students", summary.Students),
		zap.Int("invoices", summary.Invoices),
		zap.Int("payments", summary.Payments),
		zap.Int("voided", summary.Voided),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func seedStudent(ctx context.Context, p Params, summary *Summary, school *schooldomain.School, demo demoStudent, tuition decimal.Decimal, due time.Time) error {
	student, err := p.Students.Create(ctx, studentdomain.CreateRequest{
		SchoolID:  school.ID,
		FirstName: demo.first,
		LastName:  demo.last,
		Email:     fmt.Sprintf("%s.%s@%s", demo.first, demo.last, domainOf(school)),
	})
	if err != nil {
		return fmt.Errorf("seed student %s %s: %w", demo.first, demo.last, err)
	}
	summary.Students++

	description := "Tuition " + due.Format("January 2006")
	invoice, err := p.Invoices.Create(ctx, invoicedomain.CreateRequest{
		StudentID:   student.ID,
		AmountTotal: tuition,
		Currency:    school.Currency,
		DueDate:     due,
		Description: &description,
	})
	if err != nil {
		return fmt.Errorf("seed invoice for %s: %w", student.Email, err)
	}
	summary.Invoices++

	for _, raw := range demo.paid {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("seed payment %s: %w", raw, err)
		}
		reference := fmt.Sprintf("SEED-%d-%d", invoice.ID.Int64(), summary.Payments+1)
		if _, err := p.Payments.Create(ctx, paymentdomain.CreateRequest{
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    string(paymentdomain.MethodTransfer),
			Reference: &reference,
		}); err != nil {
			return fmt.Errorf("seed payment on invoice %s: %w", invoice.ID, err)
		}
		summary.Payments++
	}

	if demo.void {
		if _, err := p.Invoices.Void(ctx, invoice.ID); err != nil {
			return fmt.Errorf("seed void invoice %s: %w", invoice.ID, err)
		}
		summary.Voided++
	}
	return nil
}

func domainOf(school *schooldomain.School) string {
	for _, demo := range demoSchools {
		if demo.name == school.Name && demo.country == school.Country {
			return demo.domain
		}
	}
	return "example.com"
}
