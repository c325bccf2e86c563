package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "read", "write")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// OracleError wraps a price feed failure for a specific currency.
// Quote failures are retriable: the caller may re-quote and resubmit the
// bid; the engine itself never retries.
type OracleError struct {
	Currency Currency
	Err      error
}

func (e *OracleError) Error() string {
	return "oracle [" + string(e.Currency) + "]: " + e.Err.Error()
}

func (e *OracleError) IsRetriable() bool {
	return true
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// Auction operation outcomes. All are reported synchronously to the
// caller; a rejected operation leaves no partial state behind.
var (
	// ErrInvalidConfiguration is returned on currency setup misuse:
	// configuring twice, after bidding started, or by a non-seller.
	ErrInvalidConfiguration = errors.New("invalid currency configuration")

	// ErrOracleUnavailable is returned when no usable quote exists for a
	// bid's currency (missing feed, stale or zero price).
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrArithmeticOverflow is returned when normalization would exceed
	// the engine's fixed-point width.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrAuctionEndedOrExpired rejects bids after the deadline or after
	// the auction has been ended.
	ErrAuctionEndedOrExpired = errors.New("auction ended or expired")

	// ErrAuctionNotYetExpired rejects EndAuction before the deadline.
	ErrAuctionNotYetExpired = errors.New("auction not yet expired")

	// ErrAuctionAlreadyEnded rejects a second EndAuction.
	ErrAuctionAlreadyEnded = errors.New("auction already ended")

	// ErrInvalidBidAmount rejects non-increasing, tied, below-floor, zero
	// or negative bids.
	ErrInvalidBidAmount = errors.New("invalid bid amount")

	// ErrEscrowTransferFailed is returned when the external value movement
	// fails; ledger state is unchanged.
	ErrEscrowTransferFailed = errors.New("escrow transfer failed")

	// ErrItemTransferFailed is returned when moving the item in or out of
	// custody fails; auction state is unchanged.
	ErrItemTransferFailed = errors.New("item transfer failed")

	// ErrInvalidWithdrawAmount is returned when nothing is owed to the
	// caller in the requested currency.
	ErrInvalidWithdrawAmount = errors.New("invalid withdraw amount")

	// ErrInvalidAuctionState is returned when a withdrawal is attempted
	// while the auction is still open.
	ErrInvalidAuctionState = errors.New("invalid auction state")

	// ErrAlreadyWithdrawn rejects a repeated seller proceeds withdrawal.
	ErrAlreadyWithdrawn = errors.New("already withdrawn")

	// ErrNotWinner rejects an item claim by anyone but the recorded winner.
	ErrNotWinner = errors.New("not the auction winner")

	// ErrAlreadyClaimed rejects a second item claim.
	ErrAlreadyClaimed = errors.New("item already claimed")

	// ErrAlreadyInitialized rejects re-initialization of an auction.
	ErrAlreadyInitialized = errors.New("auction already initialized")

	// ErrConnectionFailed is returned when a feed connection fails.
	// It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
