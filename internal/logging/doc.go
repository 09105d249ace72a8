// Package logging provides structured logging for the lifxlan tools.
//
// This package wraps a process-global zap logger with convenience functions
// for the logging patterns used by the device, discovery and bridge packages.
//
// # Log Levels
//
//   - Debug: frame dumps, dropped or uncorrelated datagrams, discovery broadcasts
//   - Info: registration changes, devices going offline during bulk operations
//   - Warn: recoverable issues (MQTT reconnects, slow websocket clients)
//   - Error: unexpected failures
//
// # Silent By Default
//
// The CLI prints its own output, so the logger is a no-op unless a level is
// given explicitly or through LIFXLAN_LOG_LEVEL:
//
//	LIFXLAN_LOG_LEVEL=debug lifxctl discover
//
// # Structured Logging
//
//	logging.Info("Device registered",
//	    zap.String("mac", "d0:73:d5:01:02:03"),
//	    zap.String("label", "Kitchen"),
//	)
//
// # Frame Logging
//
//	logging.LogFrame("send", "192.168.1.10:56700", protocol.TypeSetPower, seq, data)
//
// Frame logging checks the level first so hot receive paths pay nothing when
// debug output is off.
//
// # Thread Safety
//
// Initialize and SetLogger must be called before concurrent use. All logging
// functions are safe for concurrent use after that.
package logging
