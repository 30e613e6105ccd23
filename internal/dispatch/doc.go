// Package dispatch delivers SOS alerts to the backend.
//
// A dispatcher sends each alert exactly once per call. It never retries on
// its own: a resubmission after an ambiguous failure could notify emergency
// contacts twice, so that decision is left to the user.
package dispatch
