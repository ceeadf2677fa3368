package models

import (
	"encoding/json"

	id "entrant/pkg/domain"
	dErrors "entrant/pkg/domain-errors"
)

// Kind enumerates the five constraint types organizers can attach.
type Kind string

const (
	KindAge    Kind = "age"
	KindGender Kind = "gender"
	KindStatus Kind = "status"
	KindDomain Kind = "domain"
	KindCode   Kind = "code"
)

// IsValid checks if the kind is one of the supported constraint types.
func (k Kind) IsValid() bool {
	switch k {
	case KindAge, KindGender, KindStatus, KindDomain, KindCode:
		return true
	}
	return false
}

// Config is the per-kind payload of a constraint. Modeling it as a sealed
// interface (rather than a generic map) keeps evaluator dispatch exhaustive:
// adding a kind without an evaluator arm is a compile-time switch miss.
type Config interface {
	kind() Kind
}

// AgeConfig bounds participant age in whole years at evaluation time.
// A nil bound is unbounded on that side.
type AgeConfig struct {
	MinAge *int `json:"min_age,omitempty"`
	MaxAge *int `json:"max_age,omitempty"`
}

// GenderConfig allows participants whose gender is in the set.
// An empty set fails closed: a missing configuration never admits everyone.
type GenderConfig struct {
	AllowedGenders []id.Gender `json:"allowed_genders"`
}

// StatusConfig allows participants whose status is in the set.
// An empty set fails closed.
type StatusConfig struct {
	AllowedStatuses []id.ParticipantStatus `json:"allowed_statuses"`
}

// DomainConfig allows participants whose email domain exactly matches one of
// the listed domains (case-insensitive, whitespace-trimmed).
type DomainConfig struct {
	AllowedDomains []string `json:"allowed_domains"`
}

// CodeConfig requires a participant-supplied secret code. Only the bcrypt
// hash is stored; comparison is case-sensitive by construction.
type CodeConfig struct {
	CodeHash string `json:"code_hash"`
}

func (AgeConfig) kind() Kind    { return KindAge }
func (GenderConfig) kind() Kind { return KindGender }
func (StatusConfig) kind() Kind { return KindStatus }
func (DomainConfig) kind() Kind { return KindDomain }
func (CodeConfig) kind() Kind   { return KindCode }

// Constraint is an organizer-defined eligibility rule attached to all
// segments of an event or an explicit subset.
type Constraint struct {
	ID      id.ConstraintID
	EventID id.EventID
	Kind    Kind
	Config  Config

	// AppliesToAll covers every segment of the event; otherwise SegmentIDs
	// lists the included segments explicitly.
	AppliesToAll bool
	SegmentIDs   []id.SegmentID
}

// AppliesTo reports whether the constraint is active for the given segment.
func (c *Constraint) AppliesTo(segmentID id.SegmentID) bool {
	if c.AppliesToAll {
		return true
	}
	for _, sid := range c.SegmentIDs {
		if sid == segmentID {
			return true
		}
	}
	return false
}

// DecodeConfig unmarshals a stored JSON config payload for the given kind.
func DecodeConfig(kind Kind, raw []byte) (Config, error) {
	switch kind {
	case KindAge:
		var cfg AgeConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "malformed age constraint config", err)
		}
		return cfg, nil
	case KindGender:
		var cfg GenderConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "malformed gender constraint config", err)
		}
		return cfg, nil
	case KindStatus:
		var cfg StatusConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "malformed status constraint config", err)
		}
		return cfg, nil
	case KindDomain:
		var cfg DomainConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "malformed domain constraint config", err)
		}
		return cfg, nil
	case KindCode:
		var cfg CodeConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "malformed code constraint config", err)
		}
		return cfg, nil
	}
	return nil, dErrors.Newf(dErrors.CodeInternal, "unknown constraint kind %q", kind)
}

// EncodeConfig marshals a config payload for storage.
func EncodeConfig(cfg Config) ([]byte, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "encode constraint config", err)
	}
	return raw, nil
}
