package auth

import (
	"net/http"
)

// Transport is an http.RoundTripper that adds a bearer token from Tokens to
// every request.
//
// A token failure is returned from RoundTrip unchanged, so callers see the
// *apierr.Error through the *url.Error the http.Client wraps it in.
type Transport struct {
	Tokens TokenProvider

	// Base is the underlying transport. Default: http.DefaultTransport
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Tokens.GetAccessToken(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)

	return t.base().RoundTrip(r)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
