package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "internal_error"
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidationFailed   = "validation_failed"
	CodeInvalidID          = "invalid_id"
	CodeNotFound           = "not_found"
	CodeForbidden          = "forbidden"
	CodeConflict           = "conflict"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"

	// Authentication
	CodeMissingAuth               = "missing_auth"
	CodeInvalidAuthHeader         = "invalid_auth_header"
	CodeInvalidToken              = "invalid_token"
	CodeTokenExpired              = "token_expired"
	CodeInvalidTokenUserID        = "invalid_token_user_id"
	CodeInvalidCredentials        = "invalid_credentials"
	CodeEmailNotVerified          = "email_not_verified"
	CodeEmailAlreadyExists        = "email_already_exists"
	CodeEmailRequired             = "email_required"
	CodePasswordRequired          = "password_required"
	CodePasswordTooShort          = "password_too_short"
	CodeInvalidEmailFormat        = "invalid_email_format"
	CodeRefreshTokenRequired      = "refresh_token_required"
	CodeInvalidRefreshToken       = "invalid_refresh_token"
	CodeVerificationTokenRequired = "verification_token_required"
	CodeAlreadyVerified           = "already_verified"
	CodeVerificationFailed        = "verification_failed"
	CodeInvalidResetToken         = "invalid_reset_token"
	CodeOAuthProviderUnknown      = "oauth_provider_unknown"
	CodeOAuthStateInvalid         = "oauth_state_invalid"
	CodeOAuthFailed               = "oauth_failed"

	// Homes and uploads
	CodeHomeNotFound      = "home_not_found"
	CodeNotHomeOwner      = "not_home_owner"
	CodeHomeInUse         = "home_in_use"
	CodeInvalidUpload     = "invalid_upload"
	CodeUploadUnavailable = "upload_unavailable"

	// Exchanges
	CodeExchangeNotFound    = "exchange_not_found"
	CodeInvalidTransition   = "invalid_transition"
	CodeNotParticipant      = "not_participant"
	CodeHostOnly            = "host_only"
	CodeAlreadyPaid         = "already_paid"
	CodeInsufficientCredits = "insufficient_credits"
	CodeInvalidDates        = "invalid_dates"
	CodeOwnHome             = "own_home"

	// Identity verification
	CodeAlreadyIdentityVerified = "identity_already_verified"

	// Payments and webhooks
	CodeInvalidSignature   = "invalid_signature"
	CodePaymentUnavailable = "payment_unavailable"
)
