package adapters

import (
	"context"
	"errors"
	"net/http"
)

// Kind tags a provider outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindAuthError
	KindTransientError
	KindPermanentError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAuthError:
		return "auth_error"
	case KindTransientError:
		return "transient_error"
	case KindPermanentError:
		return "permanent_error"
	default:
		return "unknown"
	}
}

// EntitlementCode is the provider error code for accounts without API access.
const EntitlementCode = "user_not_entitled"

// Outcome is the result of a single provider call. Exactly one of Payload/Text
// (on success) or Err (otherwise) is meaningful.
type Outcome struct {
	Kind    Kind
	Payload any
	Text    string
	Status  int
	Code    string
	Err     error
}

func Success(payload any) Outcome {
	return Outcome{Kind: KindSuccess, Payload: payload, Status: http.StatusOK}
}

func TextSuccess(text string) Outcome {
	return Outcome{Kind: KindSuccess, Text: text, Status: http.StatusOK}
}

func Transient(status int, err error) Outcome {
	return Outcome{Kind: KindTransientError, Status: status, Err: err}
}

func Permanent(status int, code string, err error) Outcome {
	return Outcome{Kind: KindPermanentError, Status: status, Code: code, Err: err}
}

// Classify maps an HTTP failure to an outcome kind. Entitlement refusals are
// permanent whatever their status; otherwise 401/403 are auth errors, 408/429/5xx
// are transient and everything else is permanent.
func Classify(status int, code string, err error) Outcome {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	switch {
	case code == EntitlementCode:
		return Permanent(status, code, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Outcome{Kind: KindAuthError, Status: status, Code: code, Err: err}
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return Outcome{Kind: KindTransientError, Status: status, Code: code, Err: err}
	default:
		return Permanent(status, code, err)
	}
}

func (o Outcome) OK() bool { return o.Kind == KindSuccess }

// Entitlement reports whether the provider refused for lack of entitlement.
func (o Outcome) Entitlement() bool { return o.Code == EntitlementCode }

// Error returns the failure message, or "" on success.
func (o Outcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Timeout reports whether the call failed because a deadline passed.
func (o Outcome) Timeout() bool {
	if o.Err == nil {
		return false
	}
	if errors.Is(o.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(o.Err, &te) && te.Timeout()
}
