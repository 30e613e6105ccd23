package dispatch

import (
	"context"
	"errors"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
)

// AlertSender is the part of the AlertService client the gRPC dispatcher uses.
type AlertSender interface {
	SendAlert(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error)
	Close() error
}

var errSenderRequired = errors.New("alert sender must be provided")

// GRPC delivers alerts through sos.v1.AlertService/SendAlert.
type GRPC struct {
	base

	// sender is the connected service client.
	sender AlertSender
}

// NewGRPC creates a dispatcher over sender. The dispatcher owns sender and closes it.
func NewGRPC(sender AlertSender, reporter *domain.Reporter, opts ...Option) (*GRPC, error) {
	if sender == nil {
		return nil, errSenderRequired
	}

	b, err := newBase(reporter, opts)
	if err != nil {
		return nil, err
	}

	return &GRPC{
		base:   b,
		sender: sender,
	}, nil
}

// Send delivers one alert.
func (g *GRPC) Send(ctx context.Context, location *domain.Coordinate) error {
	alert := g.newAlert(location)

	receipt, err := g.sender.SendAlert(ctx, alert)
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

// Close releases the client connection.
func (g *GRPC) Close() error {
	return g.sender.Close()
}
