package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
)

func TestSegment_Remaining(t *testing.T) {
	t.Run("unlimited capacity", func(t *testing.T) {
		s := &Segment{Capacity: 0, ReservedCount: 500}
		assert.Equal(t, -1, s.Remaining())
	})

	t.Run("partially booked", func(t *testing.T) {
		s := &Segment{Capacity: 10, ReservedCount: 4}
		assert.Equal(t, 6, s.Remaining())
	})

	t.Run("full", func(t *testing.T) {
		s := &Segment{Capacity: 10, ReservedCount: 10}
		assert.Equal(t, 0, s.Remaining())
	})
}

func TestSegment_DeadlinePassed(t *testing.T) {
	now := time.Now()

	s := &Segment{}
	assert.False(t, s.DeadlinePassed(now), "no deadline never passes")

	past := now.Add(-time.Hour)
	s = &Segment{RegistrationDeadline: &past}
	assert.True(t, s.DeadlinePassed(now))

	future := now.Add(time.Hour)
	s = &Segment{RegistrationDeadline: &future}
	assert.False(t, s.DeadlinePassed(now))
}

func TestSegment_ValidateTeamSize(t *testing.T) {
	seg := &Segment{IsTeam: true, MinTeamSize: 2, MaxTeamSize: 4}

	assert.NoError(t, seg.ValidateTeamSize(2))
	assert.NoError(t, seg.ValidateTeamSize(4))

	err := seg.ValidateTeamSize(1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	err = seg.ValidateTeamSize(5)
	require.Error(t, err)

	individual := &Segment{IsTeam: false}
	err = individual.ValidateTeamSize(3)
	require.Error(t, err)
}

func TestSegment_ConstraintsFrozen(t *testing.T) {
	assert.False(t, (&Segment{}).ConstraintsFrozen())
	assert.True(t, (&Segment{ReservedCount: 1}).ConstraintsFrozen())
}

func TestConstraint_AppliesTo(t *testing.T) {
	target := id.NewSegmentID()
	other := id.NewSegmentID()

	all := &Constraint{AppliesToAll: true}
	assert.True(t, all.AppliesTo(target))

	scoped := &Constraint{SegmentIDs: []id.SegmentID{target}}
	assert.True(t, scoped.AppliesTo(target))
	assert.False(t, scoped.AppliesTo(other))
}

func TestConfigRoundTrip(t *testing.T) {
	minAge, maxAge := 18, 30
	configs := []Config{
		AgeConfig{MinAge: &minAge, MaxAge: &maxAge},
		GenderConfig{AllowedGenders: []id.Gender{id.GenderFemale, id.GenderNonBinary}},
		StatusConfig{AllowedStatuses: []id.ParticipantStatus{id.StatusUndergraduate}},
		DomainConfig{AllowedDomains: []string{"mit.edu", "example.org"}},
		CodeConfig{CodeHash: "$2a$10$abcdefghijklmnopqrstuv"},
	}

	kinds := []Kind{KindAge, KindGender, KindStatus, KindDomain, KindCode}
	for i, cfg := range configs {
		raw, err := EncodeConfig(cfg)
		require.NoError(t, err)

		decoded, err := DecodeConfig(kinds[i], raw)
		require.NoError(t, err)
		assert.Equal(t, cfg, decoded, "kind %s", kinds[i])
	}
}

func TestDecodeConfig_UnknownKind(t *testing.T) {
	_, err := DecodeConfig(Kind("quota"), []byte(`{}`))
	require.Error(t, err)
}
