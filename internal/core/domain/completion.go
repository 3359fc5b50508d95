package domain

// Outcome classifies how a provider call ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeMissingKey    Outcome = "missing_key"
	OutcomeProviderError Outcome = "provider_error"
	OutcomeEmptyResponse Outcome = "empty_response"
)

// Completion is the result of a provider call. Text is always safe to show
// and persist; Reason holds the underlying cause when Outcome is not success.
type Completion struct {
	Text    string
	Outcome Outcome
	Reason  error
}

// OK reports whether the provider produced a reply.
func (c Completion) OK() bool {
	return c.Outcome == OutcomeSuccess
}
