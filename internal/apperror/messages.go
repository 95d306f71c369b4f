package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeWalletNotConnected: "Please connect your wallet!",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeLedgerCallFailed:         "Contract call failed",
	CodeTransactionReverted:      "Transaction reverted",
	CodeInsufficientBalance:      "You may be trying to bond more than your balance! Error code: 32603. Message: ds-math-sub-underflow",

	CodeAmountTooSmall:       "Amount is too small!",
	CodeAmountExceedsMaximum: "You're trying to bond more than the maximum payout available!",
	CodeBondUnavailable:      "Bond is not available on this network",

	CodeOracleUnavailable: "Price oracle unavailable",
	CodeDivisionByZero:    "Division by zero",

	CodeCircuitOpen: "Circuit breaker is open",
}

// DefaultMessage returns the registered message for code.
func DefaultMessage(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return string(code)
}
