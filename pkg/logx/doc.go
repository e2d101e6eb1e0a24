// Package logx configures rolecall's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - The active level swappable at runtime (config hot reload)
package logx
