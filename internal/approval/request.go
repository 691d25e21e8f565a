package approval

import (
	"fmt"
	"strings"
	"time"
)

// Status of an approval request, or of a single recorded decision.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
)

// Request is one pending sensitive operation awaiting maker-checker
// treatment. Created PENDING; mutated only by a flow strategy; terminal
// exactly once.
type Request struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActivityType string    `gorm:"index;size:100" json:"activity_type"`
	Maker        string    `gorm:"size:100" json:"maker"`
	NextIndex    int       `gorm:"column:next_approval_index" json:"next_approval_index"`
	Status       Status    `gorm:"size:16;index" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Request) TableName() string { return "approval_requests" }

func (r *Request) Terminal() bool { return r.Status != StatusPending }

// Identity is the acting operator captured at decision time. Plain snapshot
// fields, not a live user reference: the trail stays accurate if the
// operator's role changes later.
type Identity struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Flow is one accepted decision against a request. Rows are append-only;
// together they form the request's audit ledger.
type Flow struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RequestID    uint      `gorm:"index" json:"request_id"`
	Username     string    `gorm:"column:approval_username;size:100" json:"username"`
	Name         string    `gorm:"column:approval_name;size:200" json:"name"`
	Role         string    `gorm:"column:approval_role;size:100" json:"role"`
	Status       Status    `gorm:"size:16" json:"status"`
	RoleBased    bool      `json:"role_based"`
	NextApproval string    `gorm:"size:100" json:"next_approval,omitempty"`
	Reason       string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Flow) TableName() string { return "approval_flows" }

// Decision is a caller's verdict on a pending request.
type Decision struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (d Decision) Validate() error {
	switch d.Status {
	case StatusApproved:
	case StatusDeclined:
		if strings.TrimSpace(d.Reason) == "" {
			return fmt.Errorf("%w: decline requires a reason", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: decision must be APPROVED or DECLINED", ErrValidation)
	}
	return nil
}
