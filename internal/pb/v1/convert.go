package pb

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// Field names of the wire messages.
const (
	FieldID         = "id"
	FieldReportedAt = "reported_at"
	FieldReceivedAt = "received_at"
	FieldReporter   = "reporter"
	FieldHostname   = "hostname"
	FieldUsername   = "username"
	FieldLocation   = "location"
	FieldLatitude   = "latitude"
	FieldLongitude  = "longitude"
	FieldAlertID    = "alert_id"
	FieldDuplicate  = "duplicate"
	FieldAlerts     = "alerts"
	FieldLimit      = "limit"
)

// ErrMalformedMessage is returned when a wire message does not have the expected shape.
var ErrMalformedMessage = errors.New("malformed message")

// AlertToStruct encodes an alert. An unknown location is an explicit null.
func AlertToStruct(alert *domain.Alert) (*structpb.Struct, error) {
	if alert == nil {
		return nil, fmt.Errorf("%w: alert is nil", ErrMalformedMessage)
	}

	s, err := structpb.NewStruct(alertFields(alert))
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}

	return s, nil
}

// AlertFromStruct decodes an alert.
func AlertFromStruct(s *structpb.Struct) (*domain.Alert, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: alert is nil", ErrMalformedMessage)
	}

	fields := s.GetFields()

	reportedAt, err := timeField(fields, FieldReportedAt)
	if err != nil {
		return nil, err
	}

	receivedAt, err := timeField(fields, FieldReceivedAt)
	if err != nil {
		return nil, err
	}

	location, err := locationField(fields)
	if err != nil {
		return nil, err
	}

	alert := &domain.Alert{
		ID:         fields[FieldID].GetStringValue(),
		ReportedAt: reportedAt,
		ReceivedAt: receivedAt,
		Location:   location,
	}

	if reporter := fields[FieldReporter].GetStructValue(); reporter != nil {
		alert.Reporter = &domain.Reporter{
			Hostname: reporter.GetFields()[FieldHostname].GetStringValue(),
			Username: reporter.GetFields()[FieldUsername].GetStringValue(),
		}
	}

	return alert, nil
}

// ReceiptToStruct encodes a receipt.
func ReceiptToStruct(receipt *domain.Receipt) (*structpb.Struct, error) {
	if receipt == nil {
		return nil, fmt.Errorf("%w: receipt is nil", ErrMalformedMessage)
	}

	s, err := structpb.NewStruct(map[string]any{
		FieldAlertID:    receipt.AlertID,
		FieldReceivedAt: formatTime(receipt.ReceivedAt),
		FieldDuplicate:  receipt.Duplicate,
	})
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}

	return s, nil
}

// ReceiptFromStruct decodes a receipt.
func ReceiptFromStruct(s *structpb.Struct) (*domain.Receipt, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: receipt is nil", ErrMalformedMessage)
	}

	fields := s.GetFields()

	receivedAt, err := timeField(fields, FieldReceivedAt)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		AlertID:    fields[FieldAlertID].GetStringValue(),
		ReceivedAt: receivedAt,
		Duplicate:  fields[FieldDuplicate].GetBoolValue(),
	}, nil
}

// AlertListToStruct encodes alerts as {"alerts": [...]}, preserving order.
func AlertListToStruct(alerts []*domain.Alert) (*structpb.Struct, error) {
	items := make([]any, 0, len(alerts))
	for _, alert := range alerts {
		items = append(items, alertFields(alert))
	}

	s, err := structpb.NewStruct(map[string]any{FieldAlerts: items})
	if err != nil {
		return nil, fmt.Errorf("encode alert list: %w", err)
	}

	return s, nil
}

// AlertListFromStruct decodes a list produced by AlertListToStruct.
func AlertListFromStruct(s *structpb.Struct) ([]*domain.Alert, error) {
	values := s.GetFields()[FieldAlerts].GetListValue().GetValues()

	alerts := make([]*domain.Alert, 0, len(values))
	for i, value := range values {
		item := value.GetStructValue()
		if item == nil {
			return nil, fmt.Errorf("%w: alerts[%d] is not an object", ErrMalformedMessage, i)
		}

		alert, err := AlertFromStruct(item)
		if err != nil {
			return nil, fmt.Errorf("alerts[%d]: %w", i, err)
		}

		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// ListRequestToStruct encodes a ListAlerts request. A non-positive limit asks for the server default.
func ListRequestToStruct(limit int) *structpb.Struct {
	fields := make(map[string]*structpb.Value)
	if limit > 0 {
		fields[FieldLimit] = structpb.NewNumberValue(float64(limit))
	}

	return &structpb.Struct{Fields: fields}
}

// LimitFromStruct decodes the limit of a ListAlerts request, 0 when absent.
func LimitFromStruct(s *structpb.Struct) int {
	limit := s.GetFields()[FieldLimit].GetNumberValue()
	if limit <= 0 || math.IsNaN(limit) || limit > math.MaxInt32 {
		return 0
	}

	return int(limit)
}

// alertFields builds the generic representation of an alert.
func alertFields(alert *domain.Alert) map[string]any {
	fields := map[string]any{
		FieldID:         alert.ID,
		FieldReportedAt: formatTime(alert.ReportedAt),
		FieldReporter:   nil,
		FieldLocation:   nil,
	}

	if !alert.ReceivedAt.IsZero() {
		fields[FieldReceivedAt] = formatTime(alert.ReceivedAt)
	}

	if alert.Reporter != nil {
		fields[FieldReporter] = map[string]any{
			FieldHostname: alert.Reporter.Hostname,
			FieldUsername: alert.Reporter.Username,
		}
	}

	if alert.Location != nil {
		fields[FieldLocation] = map[string]any{
			FieldLatitude:  alert.Location.Latitude,
			FieldLongitude: alert.Location.Longitude,
		}
	}

	return fields
}

// locationField decodes the location, nil for a missing or null value.
func locationField(fields map[string]*structpb.Value) (*domain.Coordinate, error) {
	value, ok := fields[FieldLocation]
	if !ok {
		return nil, nil //nolint:nilnil // Missing location means unknown.
	}

	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil //nolint:nilnil // Explicit null means unknown.
	}

	location := value.GetStructValue()
	if location == nil {
		return nil, fmt.Errorf("%w: location is not an object", ErrMalformedMessage)
	}

	lat, latOK := location.GetFields()[FieldLatitude].GetKind().(*structpb.Value_NumberValue)
	lon, lonOK := location.GetFields()[FieldLongitude].GetKind().(*structpb.Value_NumberValue)

	if !latOK || !lonOK {
		return nil, fmt.Errorf("%w: location requires numeric latitude and longitude", ErrMalformedMessage)
	}

	return &domain.Coordinate{
		Latitude:  lat.NumberValue,
		Longitude: lon.NumberValue,
	}, nil
}

// timeField decodes an RFC 3339 timestamp, zero when absent.
func timeField(fields map[string]*structpb.Value, name string) (time.Time, error) {
	raw := fields[name].GetStringValue()
	if raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, name, err)
	}

	return parsed, nil
}

// formatTime renders t in UTC, empty for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}
