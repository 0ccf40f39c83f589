// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess     = "success"
	KeyNotFound    = "not_found"
	KeyInternal    = "internal_error"
	KeyRateLimited = "rate_limited"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAuthForbidden    = "auth.forbidden"

	// Validation
	KeyValidationInvalid = "validation.invalid"
	KeyValidationBody    = "validation.body"
	KeyValidationQuery   = "validation.query"

	// Ledger
	KeyLedgerNetwork  = "ledger.network"
	KeyLedgerRejected = "ledger.rejected"
	KeyLedgerReverted = "ledger.reverted"
	KeyLedgerTimeout  = "ledger.timeout"
	KeyLedgerClosed   = "ledger.closed"
	KeyTxNotFound     = "ledger.tx_not_found"
	KeyTxHashInvalid  = "ledger.tx_hash_invalid"

	// Catalog
	KeyListingNotFound = "catalog.listing_not_found"

	// Market data
	KeyMarketUnavailable = "market.unavailable"
)
