// Seed prepares a database for local development: runs migrations, creates a
// super admin, a demo unit with weighted co-owners and a scheduled assembly.
//
// Exit codes: 0 success, 1 config error, 2 database error, 3 invariant breach
// detected after seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vecinal/backend/config"
	"github.com/vecinal/backend/internal/auth"
	"github.com/vecinal/backend/internal/meetings"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/internal/units"
	"github.com/vecinal/backend/pkg/database"
	"github.com/vecinal/backend/pkg/utils"
)

const (
	exitOK = iota
	exitConfig
	exitDB
	exitInvariant
)

func main() {
	os.Exit(run())
}

func run() int {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		return exitConfig
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolConfig{
		MaxConns: int32(cfg.Database.MaxConns),
	}, logger)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return exitDB
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return exitDB
	}

	meetingID, err := seed(ctx, pool, logger)
	if err != nil {
		logger.Error("seed failed", zap.Error(err))
		return exitDB
	}

	if err := checkConservation(ctx, pool, meetingID); err != nil {
		logger.Error("seed invariant breach", zap.Error(err))
		return exitInvariant
	}

	logger.Info("seed complete", zap.Int64("meeting_id", meetingID))
	return exitOK
}

func seed(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int64, error) {
	authRepo := auth.NewRepository(pool)
	unitsRepo := units.NewRepository(pool)
	meetingsRepo := meetings.NewRepository(pool)

	admin, err := ensureUser(ctx, authRepo, "admin", "admin123", "Super Admin", "admin@example.com", models.RoleSuperAdmin)
	if err != nil {
		return 0, err
	}

	unit := &models.Unit{Name: "Edificio Central", Address: "Calle 1 #2-34", CreatedBy: &admin.ID}
	if err := unitsRepo.Create(ctx, unit); err != nil {
		return 0, err
	}

	owners := []struct {
		username  string
		apartment string
		weight    string
	}{
		{"owner101", "101", "0.3"},
		{"owner102", "102", "0.2"},
		{"owner103", "103", "0.5"},
	}
	for _, o := range owners {
		user, err := ensureUser(ctx, authRepo, o.username, "owner123",
			"Co-owner "+o.apartment, o.username+"@example.com", models.RoleCoOwner)
		if err != nil {
			return 0, err
		}
		weight, err := decimal.NewFromString(o.weight)
		if err != nil {
			return 0, err
		}
		membership := &models.UnitMembership{
			UserID:          user.ID,
			UnitID:          unit.ID,
			ApartmentNumber: o.apartment,
			DefaultWeight:   weight,
		}
		if err := unitsRepo.UpsertMembership(ctx, membership); err != nil {
			return 0, err
		}
	}

	meeting := &models.Meeting{
		UnitID:             unit.ID,
		Code:               meetings.NewMeetingCode(unit.ID),
		Title:              "Asamblea ordinaria",
		MeetingType:        "ordinary",
		ScheduledAt:        time.Now().Add(24 * time.Hour),
		OrganizerID:        admin.ID,
		AllowDelegates:     true,
		QuorumThresholdPct: decimal.NewFromFloat(50.0),
	}
	meeting.EstimatedDurationMin = 60
	if err := meetingsRepo.Create(ctx, meeting); err != nil {
		return 0, err
	}

	logger.Info("seeded unit and meeting",
		zap.Int64("unit_id", unit.ID),
		zap.String("meeting_code", meeting.Code),
		zap.Int("invited", meeting.TotalInvited),
	)
	return meeting.ID, nil
}

func ensureUser(ctx context.Context, repo *auth.Repository, username, password, fullName, email string, roleID int) (*models.User, error) {
	if user, err := repo.GetByUsername(ctx, username); err == nil {
		return user, nil
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, username, hash, fullName, email, roleID)
}

// checkConservation verifies the seeded ledger: every invitation starts with
// current_weight equal to quorum_base, so the two sums must match exactly.
func checkConservation(ctx context.Context, pool *pgxpool.Pool, meetingID int64) error {
	var base, current decimal.Decimal
	err := pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(quorum_base), 0), COALESCE(SUM(current_weight), 0)
		 FROM meeting_invitations WHERE meeting_id = $1`, meetingID).
		Scan(&base, &current)
	if err != nil {
		return err
	}
	if !base.Equal(current) {
		return fmt.Errorf("weight sums differ: base=%s current=%s", base, current)
	}
	return nil
}
