package resolver

// Outcome is the tag of a Result.
type Outcome int

const (
	Unchanged Outcome = iota
	Rewritten
	Unresolved
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Rewritten:
		return "rewritten"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonExactMatch      Reason = "exact-match"
	ReasonCaseFixed       Reason = "case-fixed"
	ReasonAliasResolved   Reason = "alias-resolved"
	ReasonRelocatedSource Reason = "relocated-source"
	ReasonMissingTarget   Reason = "missing-target"
	ReasonCycleDetected   Reason = "cycle-detected"
	ReasonAmbiguousCase   Reason = "ambiguous-case"
	ReasonOutsideRoot     Reason = "outside-root"
)

// Result is the resolution of one internal link. NewText is set only for
// Rewritten; Target is the project path the link ends up pointing at.
type Result struct {
	Outcome Outcome
	NewText string
	Reason  Reason
	Target  string
}

func unchanged(target string) Result {
	return Result{Outcome: Unchanged, Target: target}
}

func rewritten(text string, reason Reason, target string) Result {
	return Result{Outcome: Rewritten, NewText: text, Reason: reason, Target: target}
}

func unresolved(reason Reason) Result {
	return Result{Outcome: Unresolved, Reason: reason}
}
