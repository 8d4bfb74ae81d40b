package model

// MessagingResult is the parsed output of the messaging synthesis call. Raw
// is always retained; the three extracted fields are empty when their marker
// could not be found, which is a degraded success rather than a failure.
type MessagingResult struct {
	Raw             string `json:"raw"`
	SelectedService string `json:"selected_service"`
	ProblemSolved   string `json:"problem_solved"`
	IntentSignals   string `json:"intent_signals"`
}
