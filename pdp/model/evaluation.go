package model

// PolicyEvaluationResult is the verdict of a single policy for one request.
type PolicyEvaluationResult struct {
	PolicyID string
	Granted  bool
	Reason   string
}
