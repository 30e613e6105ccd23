// Package pb defines the sos.v1.AlertService wire contract.
//
// Messages are google.protobuf.Struct values so that the gRPC service, the
// REST API and the file journal share one JSON shape:
//
//	{
//	  "id": "6f1c...",
//	  "reported_at": "2026-01-02T03:04:05Z",
//	  "reporter": {"hostname": "kiosk-1", "username": "guard"},
//	  "location": {"latitude": 6.5, "longitude": 3.3}
//	}
//
// An unknown location is encoded as "location": null, never as (0,0).
package pb
