package model

import "errors"

// Policy stage errors. These are fatal at startup.
var (
	// ErrDocumentNotFound indicates the policy path does not resolve to a readable file.
	ErrDocumentNotFound = errors.New("policy document not found")

	// ErrDocumentUnreadable indicates the file exists but has no parsable paragraphs.
	ErrDocumentUnreadable = errors.New("policy document unreadable")

	// ErrCategorizationFailed indicates the categorization model call failed.
	ErrCategorizationFailed = errors.New("policy categorization failed")
)

// Encoding stage errors. Recorded per invoice.
var (
	ErrEmptyInvoice      = errors.New("empty invoice")
	ErrUnreadableInvoice = errors.New("unreadable invoice")
)

// Judgment stage errors. Recorded per invoice.
var (
	// ErrModelCallFailed wraps transport, auth, quota and timeout failures.
	ErrModelCallFailed = errors.New("model call failed")

	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("empty model response")
)

// ErrConfiguration indicates missing or invalid startup configuration.
var ErrConfiguration = errors.New("configuration error")

// ErrVerdictUnparseable is returned by the optional verdict parser only.
var ErrVerdictUnparseable = errors.New("verdict unparseable")

var kinds = []struct {
	err  error
	name string
}{
	{ErrDocumentNotFound, "DocumentNotFound"},
	{ErrDocumentUnreadable, "DocumentUnreadable"},
	{ErrCategorizationFailed, "CategorizationFailed"},
	{ErrEmptyInvoice, "EmptyInvoice"},
	{ErrUnreadableInvoice, "UnreadableInvoice"},
	{ErrModelCallFailed, "ModelCallFailed"},
	{ErrEmptyResponse, "EmptyResponse"},
	{ErrConfiguration, "ConfigurationError"},
	{ErrVerdictUnparseable, "VerdictUnparseable"},
}

// KindOf returns the taxonomy name of err, or "Unknown".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}
