package sos

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/logger"
	pb "github.com/oshokin/sos-button/internal/pb/v1"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	SubmitAlert(ctx context.Context, alert *domain.Alert) (*domain.Receipt, error)
	RecentAlerts(ctx context.Context, limit int) ([]*domain.Alert, error)
}

// Server implements the AlertService gRPC API.
type Server struct {
	pb.UnimplementedAlertServiceServer

	// service provides the business logic for alert operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// SendAlert journals an alert and returns its receipt.
func (s *Server) SendAlert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	alert, err := pb.AlertFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = alert.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	receipt, err := s.service.SubmitAlert(ctx, alert)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to journal alert", "alert_id", alert.ID, "error", err)

		return nil, status.Error(codes.Internal, "unable to journal alert")
	}

	response, err := pb.ReceiptToStruct(receipt)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode receipt")
	}

	return response, nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *Server) ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	alerts, err := s.service.RecentAlerts(ctx, pb.LimitFromStruct(req))
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list alerts", "error", err)

		return nil, status.Error(codes.Internal, "unable to list alerts")
	}

	response, err := pb.AlertListToStruct(alerts)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode alerts")
	}

	return response, nil
}
