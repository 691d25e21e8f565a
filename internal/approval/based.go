package approval

import "fmt"

// BasedStrategy resolves eligible approvers and validates a decision's
// legitimacy under one eligibility model. Implementations are stateless; the
// two variants differ only in which identity attribute and eligibility list
// they consult.
type BasedStrategy interface {
	Kind() BasedType

	// FirstApprover returns the first entry of the rule's active eligibility
	// list.
	FirstApprover(rule *Rule) (string, error)

	// ApproverAt returns the entry at idx. An out-of-range idx cycles back to
	// the first entry; see the wrap policy on approverAt.
	ApproverAt(rule *Rule, idx int) (string, error)

	// CheckNotVoted fails with ErrForbidden when the actor already has an
	// APPROVED flow on this request.
	CheckNotVoted(actor Identity, prior []Flow) error

	// Validate checks the actor may decide now. A nil idx means quorum mode
	// (any list member may act); otherwise the actor must match the entry at
	// *idx. The duplicate-vote check always runs first.
	Validate(rule *Rule, idx *int, actor Identity, prior []Flow) error
}

// approverAt resolves the eligibility list at idx. Out-of-range wraps to the
// first entry: repeat approval cycles restart at the top of the list rather
// than failing.
func approverAt(list []string, idx int) (string, error) {
	if len(list) == 0 {
		return "", fmt.Errorf("%w: eligibility list is empty", ErrConfiguration)
	}
	if idx < 0 || idx >= len(list) {
		return list[0], nil
	}
	return list[idx], nil
}

// checkNotVoted keys on the username in both variants: a given person may
// approve a given request at most once, whatever eligibility model applies.
func checkNotVoted(actor Identity, prior []Flow) error {
	for i := range prior {
		if prior[i].Status == StatusApproved && prior[i].Username == actor.Username {
			return fmt.Errorf("%w: %s already approved this request", ErrForbidden, actor.Username)
		}
	}
	return nil
}

// validateSubject is the shared validation body: duplicate check, then either
// positional match (sequential) or list membership (quorum).
func validateSubject(list []string, subject string, idx *int, actor Identity, prior []Flow) error {
	if err := checkNotVoted(actor, prior); err != nil {
		return err
	}
	if idx != nil {
		expected, err := approverAt(list, *idx)
		if err != nil {
			return err
		}
		if expected != subject {
			return fmt.Errorf("%w: expected %q to act next, got %q", ErrForbidden, expected, subject)
		}
		return nil
	}
	for _, m := range list {
		if m == subject {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not an eligible approver", ErrForbidden, subject)
}
