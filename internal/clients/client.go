// internal/clients/client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"clubledger/internal/errs"
	"clubledger/internal/payments"
)

// APIError is a non-2xx response decoded from the service error body.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Field   string
	Detail  json.RawMessage
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s (%s): %s", e.Status, e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

// Is maps the wire kind back onto the error kinds of the services.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case "validation":
		return target == errs.ErrValidation
	case "not_found":
		return target == errs.ErrNotFound
	case "conflict":
		return target == errs.ErrConflict
	case "dependency":
		return target == errs.ErrDependency
	case "override_required":
		return target == payments.ErrOverrideRequired
	}
	return false
}

type base struct {
	baseURL string
	http    *http.Client
}

func newBase(baseURL string, hc *http.Client) base {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return base{baseURL: baseURL, http: hc}
}

func (b base) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	return b.send(ctx, method, path, "application/json", body, out)
}

func (b base) send(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var wire struct {
		Error  string          `json:"error"`
		Kind   string          `json:"kind"`
		Field  string          `json:"field"`
		Detail json.RawMessage `json:"detail"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		apiErr.Kind = "internal"
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	apiErr.Kind, apiErr.Message, apiErr.Field, apiErr.Detail = wire.Kind, wire.Error, wire.Field, wire.Detail
	return apiErr
}

// DecodeDetail unmarshals the detail payload of an API error into v.
func DecodeDetail(err error, v any) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || len(apiErr.Detail) == 0 {
		return false
	}
	return json.Unmarshal(apiErr.Detail, v) == nil
}
