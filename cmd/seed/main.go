package main

import (
	"context"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/schoolbilling/internal/audit"
	"github.com/smallbiznis/schoolbilling/internal/cache"
	"github.com/smallbiznis/schoolbilling/internal/clock"
	"github.com/smallbiznis/schoolbilling/internal/config"
	"github.com/smallbiznis/schoolbilling/internal/invoice"
	"github.com/smallbiznis/schoolbilling/internal/migration"
	"github.com/smallbiznis/schoolbilling/internal/observability"
	"github.com/smallbiznis/schoolbilling/internal/payment"
	"github.com/smallbiznis/schoolbilling/internal/school"
	"github.com/smallbiznis/schoolbilling/internal/seed"
	"github.com/smallbiznis/schoolbilling/internal/student"
	"github.com/smallbiznis/schoolbilling/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	var (
		params seed.Params
		clk    clock.Clock
	)
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.SnowflakeNode)
		}),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		audit.Module,
		school.Module,
		student.Module,
		invoice.Module,
		payment.Module,
		fx.Populate(&params, &clk),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		os.Stderr.WriteString("seed: " + err.Error() + "\n")
		os.Exit(1)
	}

	_, err := seed.Run(context.Background(), params, clk.Now())
	if err != nil {
		params.Log.Error("seed failed", zap.Error(err))
	}

	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = app.Stop(stopCtx)
	if err != nil {
		os.Exit(1)
	}
}
