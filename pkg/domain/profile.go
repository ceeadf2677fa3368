package domain

import (
	"time"

	dErrors "entrant/pkg/domain-errors"
)

// Gender is a participant profile attribute matched by gender constraints.
// Organizers define the allowed set per constraint; the engine treats the
// value as an opaque, case-sensitive token from this vocabulary.
type Gender string

const (
	GenderFemale      Gender = "female"
	GenderMale        Gender = "male"
	GenderNonBinary   Gender = "non_binary"
	GenderUndisclosed Gender = "undisclosed"
)

var validGenders = map[Gender]bool{
	GenderFemale:      true,
	GenderMale:        true,
	GenderNonBinary:   true,
	GenderUndisclosed: true,
}

// ParseGender constructs a Gender from external input.
func ParseGender(s string) (Gender, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "gender cannot be empty")
	}
	g := Gender(s)
	if !validGenders[g] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid gender")
	}
	return g, nil
}

// IsValid checks if the gender is one of the supported enum values.
func (g Gender) IsValid() bool { return validGenders[g] }

func (g Gender) String() string { return string(g) }

// ParticipantStatus is the education/occupation level matched by status
// constraints.
type ParticipantStatus string

const (
	StatusHighSchool    ParticipantStatus = "high_school"
	StatusUndergraduate ParticipantStatus = "undergraduate"
	StatusPostgraduate  ParticipantStatus = "postgraduate"
	StatusProfessional  ParticipantStatus = "professional"
	StatusOther         ParticipantStatus = "other"
)

var validStatuses = map[ParticipantStatus]bool{
	StatusHighSchool:    true,
	StatusUndergraduate: true,
	StatusPostgraduate:  true,
	StatusProfessional:  true,
	StatusOther:         true,
}

// ParseParticipantStatus constructs a ParticipantStatus from external input.
func ParseParticipantStatus(s string) (ParticipantStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	p := ParticipantStatus(s)
	if !validStatuses[p] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status")
	}
	return p, nil
}

// IsValid checks if the status is one of the supported enum values.
func (p ParticipantStatus) IsValid() bool { return validStatuses[p] }

func (p ParticipantStatus) String() string { return string(p) }

// Profile is the read-only participant snapshot evaluated against segment
// constraints. For team registrations one Profile exists per member.
type Profile struct {
	UserID      UserID
	Email       string
	DateOfBirth time.Time
	Gender      Gender
	Status      ParticipantStatus
}

// AgeAt computes the whole-year age of the participant at the given instant.
// The computation is calendar-correct across leap years: the birthday has not
// happened yet this year if the (month, day) pair is still ahead.
func (p Profile) AgeAt(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := time.Date(now.Year(), p.DateOfBirth.Month(), p.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		years--
	}
	return years
}
