// Package logger wraps zap for blossom:
//   - a global sugared console logger writing to stderr, so command output on
//     stdout stays machine-readable,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - leveled helpers (Info, InfoKV, DebugKV, WarnKV, Error).
//
// Every build stage receives a context and logs through the logger stored in it.
package logger
