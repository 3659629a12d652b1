package skill

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillswap/service-booking/pkg/domain"
)

// SkillStatus represents whether a skill can currently be booked.
type SkillStatus string

const (
	SkillStatusActive   SkillStatus = "active"
	SkillStatusArchived SkillStatus = "archived"
)

// Skill is the local projection of a catalog skill offered by a provider.
type Skill struct {
	id             uuid.UUID
	providerID     uuid.UUID
	title          string
	creditsPerHour decimal.Decimal
	durationHours  decimal.Decimal
	status         SkillStatus
	totalSessions  int64
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
}

// NewSkill creates a skill projection with validated fields. The id comes from the catalog.
func NewSkill(
	id, providerID uuid.UUID,
	title string,
	creditsPerHour, durationHours decimal.Decimal,
	active bool,
	now time.Time,
) (*Skill, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("skill ID is required")
	}
	if providerID == uuid.Nil {
		return nil, domain.NewValidationError("provider ID is required")
	}
	if err := validatePricing(creditsPerHour, durationHours); err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Skill{
		id:             id,
		providerID:     providerID,
		title:          title,
		creditsPerHour: creditsPerHour,
		durationHours:  durationHours,
		status:         statusFor(active),
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstruct rebuilds a Skill from persistence data (no validation).
func Reconstruct(
	id, providerID uuid.UUID,
	title string,
	creditsPerHour, durationHours decimal.Decimal,
	status SkillStatus,
	totalSessions, version int64,
	createdAt, updatedAt time.Time,
) *Skill {
	return &Skill{
		id:             id,
		providerID:     providerID,
		title:          title,
		creditsPerHour: creditsPerHour,
		durationHours:  durationHours,
		status:         status,
		totalSessions:  totalSessions,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// --- Getters ---

func (s *Skill) ID() uuid.UUID                   { return s.id }
func (s *Skill) ProviderID() uuid.UUID           { return s.providerID }
func (s *Skill) Title() string                   { return s.title }
func (s *Skill) CreditsPerHour() decimal.Decimal { return s.creditsPerHour }
func (s *Skill) DurationHours() decimal.Decimal  { return s.durationHours }
func (s *Skill) Status() SkillStatus             { return s.status }
func (s *Skill) TotalSessions() int64            { return s.totalSessions }
func (s *Skill) Version() int64                  { return s.version }
func (s *Skill) CreatedAt() time.Time            { return s.createdAt }
func (s *Skill) UpdatedAt() time.Time            { return s.updatedAt }

// --- Behavior ---

// Duration returns the session length as a time.Duration, truncated to the minute.
func (s *Skill) Duration() time.Duration {
	minutes := s.durationHours.Mul(decimal.NewFromInt(60)).IntPart()
	return time.Duration(minutes) * time.Minute
}

// IsBookable returns true if learners may request sessions for this skill.
func (s *Skill) IsBookable() bool {
	return s.status == SkillStatusActive && s.Duration() > 0
}

// IsOfferedBy checks if the skill belongs to the given provider.
func (s *Skill) IsOfferedBy(providerID uuid.UUID) bool {
	return s.providerID == providerID
}

// Sync applies a catalog update. The provider of a skill never changes.
func (s *Skill) Sync(title string, creditsPerHour, durationHours decimal.Decimal, active bool, now time.Time) error {
	if err := validatePricing(creditsPerHour, durationHours); err != nil {
		return err
	}
	s.title = title
	s.creditsPerHour = creditsPerHour
	s.durationHours = durationHours
	s.status = statusFor(active)
	s.version++
	s.updatedAt = now.UTC()
	return nil
}

// Archive marks the skill as no longer bookable.
func (s *Skill) Archive(now time.Time) {
	s.status = SkillStatusArchived
	s.version++
	s.updatedAt = now.UTC()
}

func validatePricing(creditsPerHour, durationHours decimal.Decimal) error {
	if creditsPerHour.IsNegative() {
		return domain.NewValidationError("credits per hour cannot be negative")
	}
	if !durationHours.IsPositive() {
		return domain.NewValidationError("duration must be positive")
	}
	return nil
}

func statusFor(active bool) SkillStatus {
	if active {
		return SkillStatusActive
	}
	return SkillStatusArchived
}
