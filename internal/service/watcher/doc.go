// Package watcher implements sos-watch, the responder console.
//
// It polls the alert server, logs every alert it has not seen before and can
// run a local command for each new alert (for example to sound a siren or
// page someone on a channel the server does not know about).
package watcher
