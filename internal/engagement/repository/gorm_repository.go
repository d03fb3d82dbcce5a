package repository

import (
	"context"
	"errors"
	"time"

	"decisionlog-backend/internal/engagement/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// healthSnapshotRepository implements HealthSnapshotRepository interface
type healthSnapshotRepository struct {
	db *gorm.DB
}

// NewHealthSnapshotRepository creates a new instance of healthSnapshotRepository
func NewHealthSnapshotRepository(db *gorm.DB) HealthSnapshotRepository {
	return &healthSnapshotRepository{db: db}
}

func (r *healthSnapshotRepository) Upsert(ctx context.Context, snapshot *domain.HealthSnapshot) (*domain.HealthSnapshot, error) {
	now := time.Now().UTC()
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	snapshot.CreatedAt = now
	snapshot.UpdatedAt = now

	// Atomic upsert: INSERT ... ON CONFLICT (user_id, snapshot_date) DO UPDATE
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"health_score", "win_rate", "avg_calibration_gap", "completion_rate",
			"streak_length", "decisions_count", "outcomes_count", "updated_at",
		}),
	}).Create(snapshot).Error
	if err != nil {
		return nil, err
	}

	return r.FindByUserAndDate(ctx, snapshot.UserID, snapshot.SnapshotDate)
}

func (r *healthSnapshotRepository) FindByUserAndDate(ctx context.Context, userID, date string) (*domain.HealthSnapshot, error) {
	var snapshot domain.HealthSnapshot
	err := r.db.WithContext(ctx).Where("user_id = ? AND snapshot_date = ?", userID, date).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// sendLogRepository implements SendLogRepository interface
type sendLogRepository struct {
	db *gorm.DB
}

// NewSendLogRepository creates a new instance of sendLogRepository
func NewSendLogRepository(db *gorm.DB) SendLogRepository {
	return &sendLogRepository{db: db}
}

func (r *sendLogRepository) RecentSends(ctx context.Context, category domain.Category, userIDs []string, since time.Time) ([]domain.SendLog, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var logs []domain.SendLog
	err := r.db.WithContext(ctx).
		Where("email_type = ? AND status = ? AND sent_at >= ?", category, domain.SendStatusSent, since).
		Where("user_id IN ?", userIDs).
		Find(&logs).Error
	return logs, err
}

func (r *sendLogRepository) Claim(ctx context.Context, entry *domain.SendLog, staleBefore time.Time) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.Status = domain.SendStatusPending

	// INSERT ... ON CONFLICT (user_id, email_type, target_key, window_bucket)
	// DO UPDATE ... WHERE the existing row is an abandoned pending claim.
	// Zero affected rows means someone else holds the slot.
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "email_type"}, {Name: "target_key"}, {Name: "window_bucket"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"id", "sent_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("send_logs.status = ? AND send_logs.sent_at < ?", domain.SendStatusPending, staleBefore),
		}},
	}).Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sendLogRepository) Confirm(ctx context.Context, id string, sentAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.SendLog{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  domain.SendStatusSent,
			"sent_at": sentAt,
		}).Error
}

func (r *sendLogRepository) Release(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.SendStatusPending).
		Delete(&domain.SendLog{}).Error
}
