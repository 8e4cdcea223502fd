package types

type PollLabel string

const (
	LabelPass PollLabel = "Pass"
	LabelFail PollLabel = "Fail"
)

// Vote is one judge's opinion on a single sample. A vote with a non-empty
// Error carries no label.
type Vote struct {
	Judge     string    `json:"judge,omitempty"`
	Label     PollLabel `json:"label,omitempty"`
	Reasoning *string   `json:"reasoning,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type AggregatedVerdict struct {
	SampleKey     string    `json:"sample_key,omitempty"`
	RubricID      string    `json:"rubric_id,omitempty"`
	FinalLabel    PollLabel `json:"label"`
	Reasoning     string    `json:"reasoning"`
	Agreement     bool      `json:"agreement"`
	AgreementRate float64   `json:"agreement_rate"`
	PassVotes     int       `json:"pass_votes"`
	FailVotes     int       `json:"fail_votes"`
	NeedsReview   bool      `json:"needs_review"`
	Error         bool      `json:"error,omitempty"`
	Votes         []Vote    `json:"votes,omitempty"`
}

type BatchAgreement struct {
	TotalEvaluations int     `json:"total_evaluations"`
	UnanimousCount   int     `json:"unanimous_count"`
	UnanimousRate    float64 `json:"unanimous_rate"`
	SplitDecisions   int     `json:"split_decisions"`
	AvgAgreementRate float64 `json:"avg_agreement_rate"`
	NeedsReview      int     `json:"needs_review"`
	Errors           int     `json:"errors"`
}

// PanelResult is the outcome of aggregating several judges over one rubric.
type PanelResult struct {
	RubricID string              `json:"rubric_id,omitempty"`
	Judges   []string            `json:"judges"`
	Verdicts []AggregatedVerdict `json:"verdicts"`
	Summary  BatchAgreement      `json:"summary"`
}
