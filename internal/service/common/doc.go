// Package common holds helpers shared by several services.
//
// It provides a lightweight AlertService client wrapper with timeouts and
// detection of the current reporter (hostname/username) attached to alerts.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
