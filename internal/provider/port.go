package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// Port is the contract every market-data source implements. Fetch
// normalizes the provider's schema into DexInfo metadata keys; the
// deadline comes in on the context. A non-nil error means the call
// itself failed (transport, rate limit, 5xx) and counts against the
// provider's breaker. Data outcomes (not_found, pending) are expressed
// through DexInfo.Status and are not errors.
type Port interface {
	Name() string
	Fetch(ctx context.Context, mint string) (*domain.DexInfo, error)
}

// SymbolSource is an optional port capability: resolve a ticker symbol
// for a mint with a source-specific confidence in [0,1].
type SymbolSource interface {
	ResolveSymbol(ctx context.Context, mint string) (symbol string, confidence float64, err error)
}

// BuyersSource is an optional port capability: distinct buyers over the
// last 30 minutes.
type BuyersSource interface {
	Buyers30m(ctx context.Context, mint string) (int, error)
}

// httpStatusError carries a non-2xx response code and a snippet of the
// body for providers that encode outcomes in error payloads.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// isNotFoundStatus reports whether err is an HTTP 404.
func isNotFoundStatus(err error) bool {
	var se *httpStatusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

// statusBody returns the body snippet of an HTTP status error, or "".
func statusBody(err error) string {
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.body
	}
	return ""
}

// parseError marks a malformed provider payload, which the fallback
// chain reports differently from transport failures.
type parseError struct {
	err error
}

func (e *parseError) Error() string { return "parse response: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// isParseError reports whether err came from payload decoding.
func isParseError(err error) bool {
	var pe *parseError
	return errors.As(err, &pe)
}

// getJSON performs a rate-limited GET and decodes the JSON body into
// out. Limiter and headers may be nil.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, headers map[string]string, out any) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpStatusError{status: resp.StatusCode, body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &parseError{err: err}
	}
	return nil
}

// newHTTPClient builds the default transport for provider calls.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
