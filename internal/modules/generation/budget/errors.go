package budget

import "errors"

var (
	ErrEndpointDisabled     = errors.New("generation endpoint disabled")
	ErrUserBudgetExceeded   = errors.New("daily user budget exceeded")
	ErrGlobalBudgetExceeded = errors.New("daily global budget exceeded")
)
