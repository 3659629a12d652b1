package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skillswap/service-booking/internal/domain/skill"
	"github.com/skillswap/service-booking/pkg/domain"
)

// SkillModel is the GORM model for the skills projection table.
type SkillModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProviderID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Title          string          `gorm:"not null;size:200"`
	CreditsPerHour decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	DurationHours  decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	Status         string          `gorm:"not null;size:20"`
	TotalSessions  int64           `gorm:"not null;default:0"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

// TableName returns the table name for the GORM model.
func (SkillModel) TableName() string {
	return "skills"
}

// GormSkillRepository implements skill.SkillRepository using GORM.
type GormSkillRepository struct {
	db *gorm.DB
}

// NewGormSkillRepository creates a new GORM-backed skill repository.
func NewGormSkillRepository(db *gorm.DB) *GormSkillRepository {
	return &GormSkillRepository{db: db}
}

// FindByID retrieves a skill by its ID.
func (r *GormSkillRepository) FindByID(ctx context.Context, id uuid.UUID) (*skill.Skill, error) {
	var model SkillModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Skill", id.String())
		}
		return nil, fmt.Errorf("failed to find skill: %w", err)
	}
	return toDomainSkill(&model), nil
}

// FindByProviderID retrieves all skills offered by a provider.
func (r *GormSkillRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*skill.Skill, error) {
	var models []SkillModel
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find skills by provider: %w", err)
	}

	skills := make([]*skill.Skill, len(models))
	for i := range models {
		skills[i] = toDomainSkill(&models[i])
	}
	return skills, nil
}

// Save persists a new skill.
func (r *GormSkillRepository) Save(ctx context.Context, s *skill.Skill) error {
	if err := r.db.WithContext(ctx).Create(toSkillModel(s)).Error; err != nil {
		return fmt.Errorf("failed to save skill: %w", err)
	}
	return nil
}

// Update persists catalog changes with optimistic locking.
func (r *GormSkillRepository) Update(ctx context.Context, s *skill.Skill) error {
	model := toSkillModel(s)
	result := r.db.WithContext(ctx).
		Model(&SkillModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"title":            model.Title,
			"credits_per_hour": model.CreditsPerHour,
			"duration_hours":   model.DurationHours,
			"status":           model.Status,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update skill: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("skill was modified by another transaction")
	}
	return nil
}

// IncrementTotalSessions bumps the counter in place so concurrent completions never lose a count.
func (r *GormSkillRepository) IncrementTotalSessions(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&SkillModel{}).
		Where("id = ?", id).
		Update("total_sessions", gorm.Expr("total_sessions + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment skill sessions: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Skill", id.String())
	}
	return nil
}

func toSkillModel(s *skill.Skill) *SkillModel {
	return &SkillModel{
		ID:             s.ID(),
		ProviderID:     s.ProviderID(),
		Title:          s.Title(),
		CreditsPerHour: s.CreditsPerHour(),
		DurationHours:  s.DurationHours(),
		Status:         string(s.Status()),
		TotalSessions:  s.TotalSessions(),
		Version:        s.Version(),
		CreatedAt:      s.CreatedAt(),
		UpdatedAt:      s.UpdatedAt(),
	}
}

func toDomainSkill(m *SkillModel) *skill.Skill {
	return skill.Reconstruct(
		m.ID,
		m.ProviderID,
		m.Title,
		m.CreditsPerHour,
		m.DurationHours,
		skill.SkillStatus(m.Status),
		m.TotalSessions,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
