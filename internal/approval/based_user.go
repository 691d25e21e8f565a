package approval

// userBased grants approval rights to a named list of operators: the acting
// identity's username is matched against the rule's eligible usernames.
type userBased struct{}

func (userBased) Kind() BasedType { return BasedUser }

func (userBased) FirstApprover(rule *Rule) (string, error) {
	return approverAt(rule.EligibleUsernames, 0)
}

func (userBased) ApproverAt(rule *Rule, idx int) (string, error) {
	return approverAt(rule.EligibleUsernames, idx)
}

func (userBased) CheckNotVoted(actor Identity, prior []Flow) error {
	return checkNotVoted(actor, prior)
}

func (userBased) Validate(rule *Rule, idx *int, actor Identity, prior []Flow) error {
	return validateSubject(rule.EligibleUsernames, actor.Username, idx, actor, prior)
}
