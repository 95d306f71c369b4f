package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Bonding error codes
const (
	// Wallet
	CodeWalletNotConnected Code = "WALLET_NOT_CONNECTED"

	// Ledger
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeLedgerCallFailed         Code = "LEDGER_CALL_FAILED"
	CodeTransactionReverted      Code = "TRANSACTION_REVERTED"
	CodeInsufficientBalance      Code = "INSUFFICIENT_BALANCE"

	// Quote validation
	CodeAmountTooSmall       Code = "AMOUNT_TOO_SMALL"
	CodeAmountExceedsMaximum Code = "AMOUNT_EXCEEDS_MAXIMUM"
	CodeBondUnavailable      Code = "BOND_UNAVAILABLE"

	// Pricing
	CodeOracleUnavailable Code = "ORACLE_UNAVAILABLE"
	CodeDivisionByZero    Code = "DIVISION_BY_ZERO"

	// Circuit breaker
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
