package constants

// PageStatus is the canonical status for rows in pages.
type PageStatus string

// Stable values (store these exact strings in DB).
const (
	PageStatusRaw        PageStatus = "raw"        // text extracted, not yet structured
	PageStatusStructured PageStatus = "structured" // a structuring attempt completed (any outcome)
)

// DocStatus is the derived document-level status.
type DocStatus string

const (
	DocStatusRaw        DocStatus = "raw"        // just ingested
	DocStatusProcessing DocStatus = "processing" // some pages still raw
	DocStatusStructured DocStatus = "structured" // every page structured
)

// ProcessingStatus is the diagnostic tag attached to every structuring
// attempt's result. It never changes the shape of the returned record.
type ProcessingStatus string

const (
	StatusSuccess        ProcessingStatus = "success"
	StatusPartialSuccess ProcessingStatus = "partial_success"
	StatusEmptyText      ProcessingStatus = "empty_text"
	StatusNoAPIKey       ProcessingStatus = "no_api_key"
	StatusJSONError      ProcessingStatus = "json_error"
	StatusAuthError      ProcessingStatus = "auth_error"
	StatusRateLimitError ProcessingStatus = "rate_limit_error"
	StatusAPIError       ProcessingStatus = "api_error"
	StatusUnknownError   ProcessingStatus = "unknown_error"
	StatusFailed         ProcessingStatus = "failed" // default before any attempt tags it
)
