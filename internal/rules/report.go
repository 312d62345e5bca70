package rules

type Report struct {
	Verdict
	Policy     string      `json:"policy"`
	Violations []Violation `json:"violations,omitempty"`
	Evaluated  []RuleTrace `json:"evaluated,omitempty"`
}

type Violation struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

type RuleTrace struct {
	Rule           string `json:"rule"`
	Valid          bool   `json:"valid"`
	DurationMicros int64  `json:"duration_micros"`
}
