package approval

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// BasedType selects the eligibility model for who may approve.
type BasedType string

const (
	BasedRole BasedType = "ROLE"
	BasedUser BasedType = "USER"
)

// FlowKind selects the approval topology the feature owning a rule uses:
// one closing decision, or a multi-step quorum.
type FlowKind string

const (
	FlowSingle FlowKind = "single"
	FlowMulti  FlowKind = "multi"
)

// Rule configures maker-checker approval for one activity type: who may
// approve, which flow topology applies, and how many approvals close a
// request. Shared configuration, immutable once activated. The flow kind
// lives on the rule so deciders cannot pick a weaker topology per call.
type Rule struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	ActivityType      string                      `gorm:"uniqueIndex;size:100" json:"activity_type"`
	BasedType         BasedType                   `gorm:"column:based_type;size:16" json:"based_type"`
	FlowKind          FlowKind                    `gorm:"column:flow_kind;size:16" json:"flow_kind"`
	Sequential        bool                        `json:"sequential"`
	MinApprovals      int                         `json:"min_approvals"`
	EligibleRoles     datatypes.JSONSlice[string] `json:"eligible_roles,omitempty"`
	EligibleUsernames datatypes.JSONSlice[string] `json:"eligible_usernames,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

func (Rule) TableName() string { return "approval_rules" }

// EligibleList returns the eligibility list matching the rule's based type.
func (r *Rule) EligibleList() []string {
	if r.BasedType == BasedUser {
		return r.EligibleUsernames
	}
	return r.EligibleRoles
}

// Validate checks rule invariants before the rule is saved or acted on.
func (r *Rule) Validate() error {
	if r.ActivityType == "" {
		return fmt.Errorf("%w: activity type required", ErrValidation)
	}
	switch r.BasedType {
	case BasedRole, BasedUser:
	default:
		return fmt.Errorf("%w: unknown based type %q", ErrConfiguration, r.BasedType)
	}
	switch r.FlowKind {
	case FlowSingle, FlowMulti:
	default:
		return fmt.Errorf("%w: unknown flow kind %q", ErrConfiguration, r.FlowKind)
	}
	list := r.EligibleList()
	if len(list) == 0 {
		return fmt.Errorf("%w: rule for %q has no eligible parties", ErrConfiguration, r.ActivityType)
	}
	if r.MinApprovals < 1 {
		return fmt.Errorf("%w: min approvals must be at least 1", ErrValidation)
	}
	// One decision closes a single-flow request; a quorum above one needs the
	// multi topology.
	if r.FlowKind == FlowSingle && r.MinApprovals > 1 {
		return fmt.Errorf("%w: single flow for %q cannot require %d approvals",
			ErrConfiguration, r.ActivityType, r.MinApprovals)
	}
	// A sequential order needs enough distinct eligible parties to reach quorum.
	if r.Sequential && r.MinApprovals > len(list) {
		return fmt.Errorf("%w: sequential rule for %q requires %d approvals but lists only %d parties",
			ErrValidation, r.ActivityType, r.MinApprovals, len(list))
	}
	return nil
}
