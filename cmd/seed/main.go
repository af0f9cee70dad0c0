// cmd/seed writes demo orders, payments and a staff shift under the outlet's
// OPEN session so the X- and Z-Report endpoints have data to work with.
// Usage: seed <outlet_id>
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"restopos/internal/config"
	"restopos/internal/infra"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: seed <outlet_id>")
	}
	outletID, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid outlet_id")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx := context.Background()
	var session model.Session
	if err := db.WithContext(ctx).Where("outlet_id = ? AND status = ?", outletID, model.SessionOpen).First(&session).Error; err != nil {
		log.Fatal().Err(err).Msg("outlet has no OPEN session; open one first")
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shift := model.StaffShift{
			SessionID: session.ID,
			OutletID:  outletID,
			StaffID:   uuid.New(),
			StaffName: "Demo Server",
			Status:    model.ShiftActive,
			StartedAt: time.Now().Add(-2 * time.Hour),
		}
		if err := tx.Create(&shift).Error; err != nil {
			return err
		}

		sales := []struct {
			method string
			amount int64
		}{
			{model.MethodCash, 1250}, {model.MethodCard, 860}, {model.MethodUPI, 430}, {model.MethodCash, 275},
		}
		for i, s := range sales {
			amount := decimal.NewFromInt(s.amount)
			order := model.Order{
				SessionID:   session.ID,
				ShiftID:     &shift.ID,
				OutletID:    outletID,
				OrderNumber: fmt.Sprintf("DEMO-%d-%d", time.Now().Unix(), i+1),
				Status:      model.OrderCompleted,
				Subtotal:    amount,
				Total:       amount,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			payment := model.Payment{
				OrderID:   order.ID,
				SessionID: session.ID,
				ShiftID:   &shift.ID,
				Method:    s.method,
				Status:    model.PaymentCompleted,
				Amount:    amount,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Str("session_number", session.SessionNumber).Msg("demo orders seeded")
}
