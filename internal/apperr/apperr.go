// Package apperr defines the closed error taxonomy returned by every settlement
// operation. Numeric codes are part of the wire contract.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one failure class. A Kind is itself an error so callers can
// write errors.Is(err, apperr.NotFound).
type Kind uint16

const (
	Unauthorized                 Kind = 100
	NotFound                     Kind = 101
	InvalidState                 Kind = 102
	InsufficientFunds            Kind = 103
	Duplicate                    Kind = 104
	InvalidRating                Kind = 107
	AdminOnly                    Kind = 108
	InvalidAmount                Kind = 110
	Paused                       Kind = 116
	InvalidInput                 Kind = 117
	InvalidDuration              Kind = 125
	RateLimited                  Kind = 127
	InvalidStatus                Kind = 128
	SuccessThresholdNotMet       Kind = 132
	ExperiencedProviderQuotaFull Kind = 133
	NotNewProvider               Kind = 134
	NewProviderQuotaFull         Kind = 135
	InsufficientSkillTokens      Kind = 136
	SkillTokenContractNotSet     Kind = 137
	ApplicationFeeRequired       Kind = 138
)

var names = map[Kind]string{
	Unauthorized:                 "unauthorized",
	NotFound:                     "not_found",
	InvalidState:                 "invalid_state",
	InsufficientFunds:            "insufficient_funds",
	Duplicate:                    "duplicate",
	InvalidRating:                "invalid_rating",
	AdminOnly:                    "admin_only",
	InvalidAmount:                "invalid_amount",
	Paused:                       "paused",
	InvalidInput:                 "invalid_input",
	InvalidDuration:              "invalid_duration",
	RateLimited:                  "rate_limited",
	InvalidStatus:                "invalid_status",
	SuccessThresholdNotMet:       "success_threshold_not_met",
	ExperiencedProviderQuotaFull: "experienced_provider_quota_full",
	NotNewProvider:               "not_new_provider",
	NewProviderQuotaFull:         "new_provider_quota_full",
	InsufficientSkillTokens:      "insufficient_skill_tokens",
	SkillTokenContractNotSet:     "skill_token_contract_not_set",
	ApplicationFeeRequired:       "application_fee_required",
}

var hints = map[Kind]string{
	Unauthorized:                 "only a participant of this service can perform the action",
	NotFound:                     "check the identifier and retry",
	InvalidState:                 "the service is not in a state that allows this action",
	InsufficientFunds:            "top up your wallet before locking escrow",
	Duplicate:                    "this record already exists",
	InvalidRating:                "use a score between 1.0 and 5.0 stars",
	AdminOnly:                    "an administrator must perform this action",
	InvalidAmount:                "adjust the amount or proposed price to the allowed range",
	Paused:                       "the platform is paused, try again later",
	InvalidInput:                 "correct the highlighted field and resubmit",
	InvalidDuration:              "shorten the requested timeline",
	RateLimited:                  "too many requests in this block, wait for the next one",
	InvalidStatus:                "this service is no longer accepting applications",
	SuccessThresholdNotMet:       "the suggestion's success probability is below the required threshold",
	ExperiencedProviderQuotaFull: "no experienced-provider slots remain for this service",
	NotNewProvider:               "the provider has completed too many services to use a new-provider slot",
	NewProviderQuotaFull:         "no new-provider slots remain for this service",
	InsufficientSkillTokens:      "buy SKILL tokens to cover the application fee",
	SkillTokenContractNotSet:     "the application fee ledger is not configured",
	ApplicationFeeRequired:       "an application fee must be paid before applying",
}

// Code returns the numeric wire code.
func (k Kind) Code() uint16 { return uint16(k) }

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint16(k))
}

func (k Kind) Error() string { return k.String() }

// Hint is a user-facing message that says what to do about the failure.
func (k Kind) Hint() string { return hints[k] }

// Error is a failure of one operation. It unwraps to its Kind.
type Error struct {
	Op     string
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Kind }

// New builds an *Error for op.
func New(op string, kind Kind, format string, args ...any) error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// KindOf extracts the Kind carried by err, or 0 when err is not part of the
// taxonomy.
func KindOf(err error) Kind {
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}
