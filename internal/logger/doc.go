// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - file output for the interactive trigger, whose terminal is taken by the UI.
//
// Services accept a context and extract the logger from it, so log lines carry
// the binary name and the alert attempt they belong to.
package logger
