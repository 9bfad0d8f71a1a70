package arm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/observe"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Pipeline issues authenticated GET requests against Resource Manager.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: every error is an *apierr.Error. Non-2xx responses are
//     classified by status with the response body and Retry-After header.
type Pipeline struct {
	baseURL string
	client  *http.Client
}

// NewPipeline creates a pipeline that authenticates with tokens.
func NewPipeline(tokens auth.TokenProvider, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	return newPipeline(tokens, o)
}

func newPipeline(tokens auth.TokenProvider, o options) *Pipeline {
	return &Pipeline{
		baseURL: strings.TrimRight(o.baseURL, "/"),
		client: &http.Client{
			Transport: &auth.Transport{Tokens: tokens, Base: o.transport},
		},
	}
}

// BaseURL returns the Resource Manager endpoint.
func (p *Pipeline) BaseURL() string {
	return p.baseURL
}

// Get issues GET {BaseURL}{path}?api-version={apiVersion} and returns the
// body of a 2xx response.
func (p *Pipeline) Get(ctx context.Context, path, apiVersion string) ([]byte, error) {
	u := p.baseURL + path + "?api-version=" + url.QueryEscape(apiVersion)

	requestID := observe.CorrelationID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, err, "")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-ms-client-request-id", requestID)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apierr.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apierr.ClassifyHTTPStatus(resp.StatusCode, string(body), resp.Header.Get("Retry-After"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Classify(err)
	}
	return body, nil
}

// errInvalidFormat is returned when a list response is neither an array nor
// an object with a value array.
func errInvalidFormat() *apierr.Error {
	return apierr.NewValidation("invalid response format")
}

// decodeList accepts a bare JSON array or an object with a "value" array.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errInvalidFormat().WithDetail(err.Error())
		}
		return items, nil
	}
	return decodeValue[T](trimmed)
}

// decodeValue requires an object with a "value" array.
func decodeValue[T any](body []byte) ([]T, error) {
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errInvalidFormat().WithDetail(err.Error())
	}

	raw := bytes.TrimSpace(envelope.Value)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errInvalidFormat()
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errInvalidFormat().WithDetail(err.Error())
	}
	return items, nil
}

func requireArg(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return apierr.NewValidation(name + " is required")
	}
	return nil
}

func segment(s string) string {
	return url.PathEscape(s)
}

// decodeObject decodes a single resource.
func decodeObject(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errInvalidFormat().WithDetail(err.Error())
	}
	return nil
}

// operationMeta names one client operation for telemetry. The tenant comes
// from the signed-in user attached to ctx, if any.
func operationMeta(ctx context.Context, service, operation, subscriptionID, location string) observe.OperationMeta {
	return observe.OperationMeta{
		Service:        service,
		Operation:      operation,
		SubscriptionID: subscriptionID,
		Location:       location,
		TenantID:       auth.TenantIDFromContext(ctx),
	}
}
