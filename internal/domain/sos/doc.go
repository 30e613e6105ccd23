// Package sos contains the core domain types of an emergency alert.
//
// It defines the Coordinate captured for an alert, the Reporter who raised it,
// the Alert payload delivered to the backend and the typed failures of the two
// collaborators an alert attempt depends on: location lookup and dispatch.
package sos
