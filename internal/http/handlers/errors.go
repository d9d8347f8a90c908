package handlers

// Error codes of ErrorResponse. Clients branch on these, never on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// ErrCodeValidation: the request failed structural rules; details lists
	// every violation.
	ErrCodeValidation = "validation_failed"
	// ErrCodeBusinessRule: the request was well formed but breaks a rule that
	// needs stored data or cross-field checks (unknown airport, arrival not
	// after departure).
	ErrCodeBusinessRule = "business_rule_violated"
)
