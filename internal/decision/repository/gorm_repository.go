package repository

import (
	"context"
	"time"

	"decisionlog-backend/internal/decision/domain"

	"gorm.io/gorm"
)

// gormDecisionReader implements DecisionReader using GORM
type gormDecisionReader struct {
	db *gorm.DB
}

// NewGormDecisionReader creates a new GORM-based DecisionReader
func NewGormDecisionReader(db *gorm.DB) DecisionReader {
	return &gormDecisionReader{db: db}
}

func (r *gormDecisionReader) DecisionsByUser(ctx context.Context, userID string) ([]domain.Decision, error) {
	var decisions []domain.Decision
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC").Find(&decisions).Error
	return decisions, err
}

func (r *gormDecisionReader) OutcomesByUser(ctx context.Context, userID string) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("completed_at ASC").Find(&outcomes).Error
	return outcomes, err
}

func (r *gormDecisionReader) DecidedWithoutOutcome(ctx context.Context, after, before time.Time) ([]domain.Decision, error) {
	var decisions []domain.Decision
	err := r.db.WithContext(ctx).
		Where("decided_at IS NOT NULL AND chosen_option_id IS NOT NULL AND chosen_option_id <> ''").
		Where("decided_at > ? AND decided_at <= ?", after, before).
		Where("NOT EXISTS (SELECT 1 FROM outcomes WHERE outcomes.decision_id = decisions.id)").
		Order("decided_at ASC").
		Find(&decisions).Error
	return decisions, err
}

func (r *gormDecisionReader) DecisionCountsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	type countRow struct {
		UserID string
		Cnt    int
	}
	var rows []countRow
	err := r.db.WithContext(ctx).Model(&domain.Decision{}).
		Select("user_id, COUNT(*) AS cnt").
		Where("created_at >= ?", since).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Cnt
	}
	return counts, nil
}

func (r *gormDecisionReader) DecisionCreationTimes(ctx context.Context, userIDs []string, since time.Time) ([]UserTimestamp, error) {
	var rows []UserTimestamp
	query := r.db.WithContext(ctx).Model(&domain.Decision{}).
		Select("user_id, created_at AS at").
		Where("created_at >= ?", since)
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}
	err := query.Scan(&rows).Error
	return rows, err
}

func (r *gormDecisionReader) OutcomeCompletionTimes(ctx context.Context, userIDs []string, since time.Time) ([]UserTimestamp, error) {
	var rows []UserTimestamp
	query := r.db.WithContext(ctx).Model(&domain.Outcome{}).
		Select("user_id, completed_at AS at").
		Where("completed_at >= ?", since)
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}
	err := query.Scan(&rows).Error
	return rows, err
}

func (r *gormDecisionReader) CheckInDates(ctx context.Context, userIDs []string, sinceDate string) ([]UserDate, error) {
	var rows []UserDate
	query := r.db.WithContext(ctx).Model(&domain.CheckIn{}).
		Select("user_id, date").
		Where("date >= ?", sinceDate)
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}
	err := query.Scan(&rows).Error
	return rows, err
}

func (r *gormDecisionReader) ProfilesCreatedSince(ctx context.Context, since time.Time) ([]domain.Profile, error) {
	var profiles []domain.Profile
	err := r.db.WithContext(ctx).Where("created_at >= ?", since).
		Order("created_at ASC").Find(&profiles).Error
	return profiles, err
}

func (r *gormDecisionReader) ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]*domain.Profile, error) {
	if len(userIDs) == 0 {
		return map[string]*domain.Profile{}, nil
	}

	var profiles []domain.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}

	result := make(map[string]*domain.Profile, len(profiles))
	for i := range profiles {
		result[profiles[i].ID] = &profiles[i]
	}
	return result, nil
}
