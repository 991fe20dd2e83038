package model

// FailureKind names the class of error that stopped an extraction.
type FailureKind string

// Failure kinds.
const (
	FailureFetch          FailureKind = "fetch"
	FailureParse          FailureKind = "parse"
	FailureMalformedURL   FailureKind = "malformed_url"
	FailureLayoutNotFound FailureKind = "layout_not_found"
	FailureCanceled       FailureKind = "canceled"
	FailureUnknown        FailureKind = "unknown"
)

// Failure records a beer URL that was skipped because extraction failed.
type Failure struct {
	// URL is the beer URL as it appeared in the input list.
	URL string `json:"url"`

	// Kind classifies the error.
	Kind FailureKind `json:"kind"`

	// Message is the error text.
	Message string `json:"message"`
}
