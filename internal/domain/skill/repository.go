package skill

import (
	"context"

	"github.com/google/uuid"
)

// SkillRepository defines persistence operations for the skill projection.
type SkillRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Skill, error)
	FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*Skill, error)
	Save(ctx context.Context, skill *Skill) error
	Update(ctx context.Context, skill *Skill) error
	// IncrementTotalSessions adds one completed session to the skill's counter.
	IncrementTotalSessions(ctx context.Context, id uuid.UUID) error
}
