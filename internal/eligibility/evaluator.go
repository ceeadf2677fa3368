// Package eligibility decides whether a participant profile satisfies the
// constraints active on a segment. Evaluation is a pure function over its
// inputs plus the caller-supplied clock instant; it performs no I/O.
package eligibility

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"entrant/internal/catalog/models"
	id "entrant/pkg/domain"
	"entrant/pkg/email"
	pstrings "entrant/pkg/platform/strings"
)

// Failure describes one constraint a participant did not satisfy. For team
// evaluations MemberUserID attributes the failure to a member.
type Failure struct {
	ConstraintID id.ConstraintID
	Kind         models.Kind
	MemberUserID id.UserID
	Reason       string
}

// Result is the outcome of evaluating a principal against a segment's
// constraints. All failures are collected, never just the first, so callers
// can report exactly which member failed which rule.
type Result struct {
	OK       bool
	Failures []Failure
}

// FirstFailure returns the first collected failure for compact diagnostics.
func (r Result) FirstFailure() (Failure, bool) {
	if len(r.Failures) == 0 {
		return Failure{}, false
	}
	return r.Failures[0], true
}

// Evaluate checks an individual profile against every constraint applicable
// to the segment. The participant must satisfy all of them (logical AND).
// suppliedCode is the out-of-band secret for code constraints; it is not part
// of the profile.
func Evaluate(constraints []models.Constraint, segmentID id.SegmentID, profile id.Profile, suppliedCode string, now time.Time) Result {
	var failures []Failure
	for i := range constraints {
		c := &constraints[i]
		if !c.AppliesTo(segmentID) {
			continue
		}
		if reason, ok := check(c, profile, suppliedCode, now); !ok {
			failures = append(failures, Failure{
				ConstraintID: c.ID,
				Kind:         c.Kind,
				MemberUserID: profile.UserID,
				Reason:       reason,
			})
		}
	}
	return Result{OK: len(failures) == 0, Failures: failures}
}

// EvaluateTeam checks every member independently; the team passes only if
// every member passes every applicable constraint. Failures from all members
// are collected.
func EvaluateTeam(constraints []models.Constraint, segmentID id.SegmentID, members []id.Profile, suppliedCode string, now time.Time) Result {
	var failures []Failure
	for _, member := range members {
		r := Evaluate(constraints, segmentID, member, suppliedCode, now)
		failures = append(failures, r.Failures...)
	}
	return Result{OK: len(failures) == 0, Failures: failures}
}

// check dispatches on the constraint's config type. The switch is exhaustive
// over the sealed Config implementations; an unknown payload fails closed.
func check(c *models.Constraint, profile id.Profile, suppliedCode string, now time.Time) (reason string, ok bool) {
	switch cfg := c.Config.(type) {
	case models.AgeConfig:
		age := profile.AgeAt(now)
		if cfg.MinAge != nil && age < *cfg.MinAge {
			return fmt.Sprintf("participant is %d, minimum age is %d", age, *cfg.MinAge), false
		}
		if cfg.MaxAge != nil && age > *cfg.MaxAge {
			return fmt.Sprintf("participant is %d, maximum age is %d", age, *cfg.MaxAge), false
		}
		return "", true

	case models.GenderConfig:
		// Empty allow-set fails closed: misconfiguration must never admit
		// everyone.
		for _, g := range cfg.AllowedGenders {
			if g == profile.Gender {
				return "", true
			}
		}
		return "gender not permitted for this segment", false

	case models.StatusConfig:
		for _, s := range cfg.AllowedStatuses {
			if s == profile.Status {
				return "", true
			}
		}
		return "status not permitted for this segment", false

	case models.DomainConfig:
		// Entries may themselves be comma-joined lists; flatten and
		// normalize before matching.
		var domains []string
		for _, d := range cfg.AllowedDomains {
			domains = append(domains, strings.Split(d, ",")...)
		}
		for _, domain := range pstrings.DedupeAndTrimLower(domains) {
			if email.MatchesDomain(profile.Email, domain) {
				return "", true
			}
		}
		return "email domain not permitted for this segment", false

	case models.CodeConfig:
		if suppliedCode == "" {
			return "registration code required", false
		}
		if bcrypt.CompareHashAndPassword([]byte(cfg.CodeHash), []byte(suppliedCode)) != nil {
			return "registration code does not match", false
		}
		return "", true
	}
	return "unrecognized constraint configuration", false
}

// HashCode produces the bcrypt hash stored in a code constraint's config.
// Exported for the authoring side and test fixtures.
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
