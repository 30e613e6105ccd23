package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/version"
)

// DefaultLookupTimeout bounds a single lookup.
const DefaultLookupTimeout = 8 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 64 << 10

var (
	errLookupURLRequired = errors.New("lookup url must be provided")
	errLookupRejected    = errors.New("lookup rejected")
)

// httpStatusError carries a non-2xx response.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Body)
}

// lookupResponse is the ip-api.com response shape.
type lookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// IPLookup estimates the position from the public IP address through an HTTP geolocation service.
type IPLookup struct {
	// url is the lookup endpoint.
	url string
	// session performs the requests.
	session *http.Client
	// timeout bounds each lookup.
	timeout time.Duration
}

// IPLookupOption configures IPLookup.
type IPLookupOption func(*IPLookup)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) IPLookupOption {
	return func(l *IPLookup) {
		if client != nil {
			l.session = client
		}
	}
}

// WithLookupTimeout sets the per-lookup timeout.
func WithLookupTimeout(timeout time.Duration) IPLookupOption {
	return func(l *IPLookup) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// NewIPLookup creates a provider querying url.
func NewIPLookup(url string, opts ...IPLookupOption) (*IPLookup, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errLookupURLRequired
	}

	l := &IPLookup{
		url:     url,
		session: http.DefaultClient,
		timeout: DefaultLookupTimeout,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// CurrentPosition performs one lookup. Failures are *sos.LocationError:
// the timeout maps to Timeout, 401 and 403 to PermissionDenied, anything else
// to PositionUnavailable.
func (l *IPLookup) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	coordinate, err := l.lookup(ctx)
	if err != nil {
		failure := classify(ctx, err)
		logger.DebugKV(ctx, "Location lookup failed", "url", l.url, "reason", failure.String(), "error", err)

		return domain.Coordinate{}, domain.NewLocationError(failure, err)
	}

	logger.DebugKV(ctx, "Location lookup succeeded", "coordinate", coordinate.String())

	return coordinate, nil
}

func (l *IPLookup) lookup(ctx context.Context) (domain.Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.do(req)
	if err != nil {
		return domain.Coordinate{}, err
	}
	defer resp.Body.Close()

	var decoded lookupResponse
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&decoded); err != nil {
		return domain.Coordinate{}, fmt.Errorf("decode lookup response: %w", err)
	}

	if decoded.Status != "" && decoded.Status != "success" {
		return domain.Coordinate{}, fmt.Errorf("%w: %s", errLookupRejected, decoded.Message)
	}

	if decoded.Lat == nil || decoded.Lon == nil {
		return domain.Coordinate{}, fmt.Errorf("%w: response has no coordinates", errLookupRejected)
	}

	coordinate := domain.Coordinate{Latitude: *decoded.Lat, Longitude: *decoded.Lon}
	if err = coordinate.Validate(); err != nil {
		return domain.Coordinate{}, err
	}

	return coordinate, nil
}

func (l *IPLookup) do(req *http.Request) (*http.Response, error) {
	resp, err := l.session.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()

		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}

	return resp, nil
}

// classify maps a lookup error to the failure reported to the user.
func classify(ctx context.Context, err error) domain.LocationFailure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.LocationFailureTimeout
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.LocationFailurePermissionDenied
		}
	}

	if errors.Is(err, context.Canceled) {
		return domain.LocationFailureUnknown
	}

	return domain.LocationFailurePositionUnavailable
}
