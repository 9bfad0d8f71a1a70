// Package apierr classifies failures from the Azure Resource Manager API into
// a closed set of typed errors.
//
// Every failure seen by the client layer, whether a transport error, an HTTP
// status, or a local argument check, is mapped to exactly one Kind. Each kind
// carries a stable code, a user-facing message, and a retryable flag that the
// resilience package consults when deciding whether to try again.
//
// # Classification
//
//	err := apierr.ClassifyHTTPStatus(resp.StatusCode, body, resp.Header.Get("Retry-After"))
//	if apierr.IsRetryable(err) {
//	    // back off and try again
//	}
//
// Classify and ClassifyHTTPStatus are total: every input yields a non-nil
// *Error (except Classify(nil)) and neither function panics.
package apierr
