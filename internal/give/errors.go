package give

import "errors"

// Sentinel errors for the failure modes callers are expected to branch on.
// Everything else is wrapped context around one of these or a plain error.
var (
	// ErrGatewayUnreachable indicates a transport-level failure talking to
	// the ledger. Retryable by the caller.
	ErrGatewayUnreachable = errors.New("ledger gateway unreachable")

	// ErrLedgerRejected indicates the ledger refused or reverted a write.
	// Not retryable without changing the inputs.
	ErrLedgerRejected = errors.New("ledger rejected transaction")

	// ErrMalformedResponse indicates the ledger returned data that does not
	// match the expected shape for the call.
	ErrMalformedResponse = errors.New("malformed ledger response")

	// ErrInvalidAmount indicates an amount string failed local validation.
	// Never reaches the gateway.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDuration indicates a campaign duration failed local
	// validation. Never reaches the gateway.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrAggregationFailed indicates an aggregation pass produced no usable
	// data at all. Partial failures are not errors; see Snapshot.Complete.
	ErrAggregationFailed = errors.New("aggregation produced no usable data")
)
