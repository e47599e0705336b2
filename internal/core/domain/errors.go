package domain

import "errors"

// Address derivation.
var (
	ErrSeedTooLong  = errors.New("seed exceeds 64 bytes")
	ErrTooManySeeds = errors.New("too many seeds")
	ErrNoViableBump = errors.New("no bump yields a usable address")
)

// Records.
var (
	ErrInvalidID          = errors.New("id must be 1 to 64 bytes")
	ErrDisplayNameTooLong = errors.New("display name exceeds 64 bytes")
	ErrAddressOccupied    = errors.New("address already holds data")
	ErrRecordTooLarge     = errors.New("record exceeds its reserved space")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrUnexpectedKind     = errors.New("record has unexpected kind")
	ErrFeeBpsOutOfRange   = errors.New("fee basis points exceed 10000")
	ErrReadOnlyUnit       = errors.New("write attempted outside an atomic unit")
)

// Holding vault.
var (
	ErrHoldingNotFound       = errors.New("holding account not found")
	ErrTransferUnauthorized  = errors.New("authority does not own source holding")
	ErrTransferAssetMismatch = errors.New("holdings carry different assets")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrBalanceOverflow       = errors.New("balance would overflow")
)
