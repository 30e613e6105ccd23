//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
	"github.com/oshokin/sos-button/internal/version"
)

// Client wraps the gRPC AlertService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the alert server.
	conn *grpc.ClientConn
	// api is the AlertService client interface.
	api pb.AlertServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the default transport credentials.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions appends gRPC dial options, for example a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errAlertRequired is returned when an alert is not provided.
	errAlertRequired = errors.New("alert must be provided")
	// errNotConnected is returned when a zero Client is used.
	errNotConnected = errors.New("client is not connected")
)

// Dial establishes a gRPC connection to the alert server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append(
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUserAgent(version.UserAgent()),
		},
		client.dialOptions...,
	)

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial alert server: %w", err)
	}

	client.conn = conn
	client.api = pb.NewAlertServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// SendAlert delivers one alert and returns the server receipt.
func (c *Client) SendAlert(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error) {
	if alert == nil {
		return nil, errAlertRequired
	}

	if c.api == nil {
		return nil, errNotConnected
	}

	request, err := pb.AlertToStruct(alert)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.SendAlert(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("send alert: %w", err)
	}

	receipt, err := pb.ReceiptFromStruct(response)
	if err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	return receipt, nil
}

// ListAlerts retrieves up to limit recent alerts, newest first.
// A non-positive limit uses the server default.
func (c *Client) ListAlerts(ctx context.Context, limit int) ([]*domain.Alert, error) {
	if c.api == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ListAlerts(callCtx, pb.ListRequestToStruct(limit))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	alerts, err := pb.AlertListFromStruct(response)
	if err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}

	return alerts, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
