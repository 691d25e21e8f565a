package approval

// roleBased grants approval rights by role membership: the acting identity's
// role claim is matched against the rule's eligible roles.
type roleBased struct{}

func (roleBased) Kind() BasedType { return BasedRole }

func (roleBased) FirstApprover(rule *Rule) (string, error) {
	return approverAt(rule.EligibleRoles, 0)
}

func (roleBased) ApproverAt(rule *Rule, idx int) (string, error) {
	return approverAt(rule.EligibleRoles, idx)
}

func (roleBased) CheckNotVoted(actor Identity, prior []Flow) error {
	return checkNotVoted(actor, prior)
}

func (roleBased) Validate(rule *Rule, idx *int, actor Identity, prior []Flow) error {
	return validateSubject(rule.EligibleRoles, actor.Role, idx, actor, prior)
}
