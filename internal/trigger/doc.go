// Package trigger implements the SOS alert state machine.
//
// A Machine turns a press-and-hold gesture into at most one delivered alert:
//
//	Idle -> Holding -> Locating -> AwaitingConfirmation -> Dispatching -> Sent | Failed
//	                      |
//	                      +-> LocationUnavailable -> Dispatching (without location)
//	                                             -> Locating     (retry)
//	                                             -> Idle         (cancel)
//
// The location provider and the alert dispatcher are injected interfaces.
// Their calls run asynchronously; results that arrive after the machine moved
// on are discarded. A failed dispatch is terminal and never resubmitted, since
// a silent resubmission would notify emergency contacts twice.
package trigger
