package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
	"github.com/oshokin/sos-button/internal/version"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 64 << 10

var errBackendURLRequired = errors.New("backend url must be provided")

// httpStatusError carries a non-2xx response.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Body)
}

// WithHTTPClient replaces the HTTP client of the HTTP dispatcher.
func WithHTTPClient(client *http.Client) Option {
	return func(b *base) {
		if client != nil {
			b.session = client
		}
	}
}

// WithRequestTimeout bounds one HTTP delivery.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(b *base) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// HTTP delivers alerts as JSON to POST {backend}/api/v1/sos.
type HTTP struct {
	base

	// endpoint is the absolute alert URL.
	endpoint string
}

// NewHTTP creates a dispatcher posting to backendURL.
func NewHTTP(backendURL string, reporter *domain.Reporter, opts ...Option) (*HTTP, error) {
	if strings.TrimSpace(backendURL) == "" {
		return nil, errBackendURLRequired
	}

	endpoint, err := url.JoinPath(backendURL, pb.SendAlertPath)
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}

	b, err := newBase(reporter, opts)
	if err != nil {
		return nil, err
	}

	return &HTTP{
		base:     b,
		endpoint: endpoint,
	}, nil
}

// Send delivers one alert.
func (h *HTTP) Send(ctx context.Context, location *domain.Coordinate) error {
	alert := h.newAlert(location)

	receipt, err := h.post(ctx, alert)
	if err != nil {
		return &domain.DispatchError{Err: err}
	}

	logger.InfoKV(ctx, "Alert delivered",
		"alert_id", receipt.AlertID,
		"location", alert.LocationText(),
		"duplicate", receipt.Duplicate,
	)

	return nil
}

// Close drops idle keep-alive connections.
func (h *HTTP) Close() error {
	h.session.CloseIdleConnections()

	return nil
}

func (h *HTTP) post(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	message, err := pb.AlertToStruct(alert)
	if err != nil {
		return nil, err
	}

	body, err := protojson.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}

	req, err := h.newRequest(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := h.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contents, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var decoded structpb.Struct
	if err = protojson.Unmarshal(contents, &decoded); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	return pb.ReceiptFromStruct(&decoded)
}

func (h *HTTP) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (h *HTTP) do(req *http.Request) (*http.Response, error) {
	resp, err := h.session.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()

		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}

	return resp, nil
}
