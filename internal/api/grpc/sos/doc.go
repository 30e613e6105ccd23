// Package sos provides the gRPC transport for sos.v1.AlertService.
//
// The Server validates incoming alerts, delegates to a Service implementation
// and maps results to the wire messages defined in internal/pb/v1.
package sos
