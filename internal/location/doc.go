// Package location provides the position lookups an SOS trigger can use.
//
// Every provider reports failures as *sos.LocationError so the trigger can
// tell a refused permission from a lookup that timed out.
package location
