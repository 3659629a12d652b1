package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillswap/service-booking/internal/domain/skill"
	"github.com/skillswap/service-booking/pkg/domain"
)

// SkillService maintains the local projection of the skill catalog.
type SkillService struct {
	repo   skill.SkillRepository
	clock  Clock
	logger *zap.Logger
}

// NewSkillService creates a new SkillService.
func NewSkillService(repo skill.SkillRepository, clock Clock, logger *zap.Logger) *SkillService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SkillService{repo: repo, clock: clock, logger: logger}
}

// SyncSkill inserts or updates a skill from a catalog event.
func (s *SkillService) SyncSkill(ctx context.Context, req SyncSkillRequest) (*SkillDTO, error) {
	now := s.clock.Now()

	existing, err := s.repo.FindByID(ctx, req.SkillID)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	if existing == nil {
		sk, err := skill.NewSkill(req.SkillID, req.ProviderID, req.Title, req.CreditsPerHour, req.DurationHours, req.IsActive, now)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Save(ctx, sk); err != nil {
			return nil, fmt.Errorf("failed to create skill: %w", err)
		}
		s.logger.Info("skill added", zap.String("skill_id", sk.ID().String()))
		result := toSkillDTO(sk)
		return &result, nil
	}

	if !existing.IsOfferedBy(req.ProviderID) {
		return nil, domain.NewValidationError("skill provider cannot change")
	}
	if err := existing.Sync(req.Title, req.CreditsPerHour, req.DurationHours, req.IsActive, now); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update skill: %w", err)
	}
	s.logger.Info("skill updated", zap.String("skill_id", existing.ID().String()))
	result := toSkillDTO(existing)
	return &result, nil
}

// GetSkill returns a single skill projection.
func (s *SkillService) GetSkill(ctx context.Context, id uuid.UUID) (*SkillDTO, error) {
	sk, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toSkillDTO(sk)
	return &result, nil
}

// ListProviderSkills returns the skills offered by a provider.
func (s *SkillService) ListProviderSkills(ctx context.Context, providerID uuid.UUID) ([]SkillDTO, error) {
	skills, err := s.repo.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get skills: %w", err)
	}
	dtos := make([]SkillDTO, len(skills))
	for i, sk := range skills {
		dtos[i] = toSkillDTO(sk)
	}
	return dtos, nil
}
