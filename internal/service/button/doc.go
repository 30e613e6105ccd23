// Package button implements sos-button, the trigger side of the system.
//
// It wires a location provider and an alert dispatcher into a trigger.Machine
// and drives it either from an interactive terminal view (press and hold the
// space bar) or headless, where the hold and the confirmation happen
// automatically.
package button
