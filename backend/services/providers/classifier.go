package providers

import "strings"

// Message heuristics applied when an upstream failure carries no
// structured status. Checked in precedence order: rate limit wins over
// auth, auth wins over payment.
var (
	rateLimitIndicators = []string{
		"rate limit",
		"rate_limit",
		"too many requests",
		"429",
		"quota exceeded",
		"throttl",
	}
	authIndicators = []string{
		"unauthorized",
		"invalid api key",
		"invalid x-api-key",
		"authentication",
		"401",
		"403",
		"forbidden",
		"permission",
	}
	paymentIndicators = []string{
		"payment required",
		"insufficient credit",
		"insufficient balance",
		"billing",
		"402",
	}
)

// Classify normalizes an arbitrary provider failure into a
// ClassifiedError. Errors that already carry a ClassifiedError anywhere
// in their chain pass through unchanged; everything else is classified
// from the message text. Unknown failures default to retryable with
// status 0 so transient network errors still fail over.
func Classify(provider string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	if cerr, ok := AsClassified(err); ok {
		return cerr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, rateLimitIndicators):
		return NewClassifiedError(provider, err.Error(), 429, true, err)
	case containsAny(msg, authIndicators):
		return NewClassifiedError(provider, err.Error(), 401, false, err)
	case containsAny(msg, paymentIndicators):
		return NewClassifiedError(provider, err.Error(), 402, false, err)
	default:
		return NewClassifiedError(provider, err.Error(), 0, true, err)
	}
}

func containsAny(msg string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(msg, ind) {
			return true
		}
	}
	return false
}
