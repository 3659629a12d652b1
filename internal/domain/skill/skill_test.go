package skill

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewSkill(t *testing.T) {
	s, err := NewSkill(uuid.New(), uuid.New(), "Go basics", decimal.RequireFromString("10"), decimal.RequireFromString("1.5"), true, now)
	require.NoError(t, err)
	assert.True(t, s.IsBookable())
	assert.Equal(t, 90*time.Minute, s.Duration())

	_, err = NewSkill(uuid.New(), uuid.New(), "x", decimal.RequireFromString("-1"), decimal.RequireFromString("1"), true, now)
	assert.Error(t, err)
	_, err = NewSkill(uuid.New(), uuid.Nil, "x", decimal.RequireFromString("1"), decimal.RequireFromString("1"), true, now)
	assert.Error(t, err)
}

func TestSyncAndArchive(t *testing.T) {
	s, err := NewSkill(uuid.New(), uuid.New(), "Go basics", decimal.RequireFromString("10"), decimal.RequireFromString("1"), true, now)
	require.NoError(t, err)

	require.NoError(t, s.Sync("Go advanced", decimal.RequireFromString("20"), decimal.RequireFromString("2"), false, now))
	assert.Equal(t, "Go advanced", s.Title())
	assert.False(t, s.IsBookable())
	assert.Equal(t, int64(2), s.Version())

	assert.Error(t, s.Sync("bad", decimal.RequireFromString("1"), decimal.Zero, true, now))

	require.NoError(t, s.Sync("Go advanced", decimal.RequireFromString("20"), decimal.RequireFromString("2"), true, now))
	s.Archive(now)
	assert.Equal(t, SkillStatusArchived, s.Status())
	assert.False(t, s.IsBookable())
}
