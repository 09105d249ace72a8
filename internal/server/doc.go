// Package server implements the lifx-bridge HTTP API.
//
// The server exposes a registry.Registry over JSON and streams registry
// events to websocket clients. It is what lets phones, scripts and home
// automation drive bulbs without speaking the LIFX UDP protocol themselves.
//
// # Endpoints
//
//	GET  /api/version               build information
//	GET  /api/devices               snapshots of every registered device
//	GET  /api/devices/{mac}         one snapshot, 404 if unknown
//	POST /api/devices/{mac}/power   {"on":true,"duration":500,"rapid":false}
//	POST /api/devices/{mac}/color   {"color":"#ff0000","duration":500,"rapid":false}
//	POST /api/devices/{mac}/label   {"label":"Desk"}
//	GET  /ws                        websocket stream of registry.Event JSON
//
// Malformed bodies answer 400, an unreachable bulb answers 504, and a
// successful command answers with the device's new snapshot.
//
// # Usage Example
//
//	srv, err := server.New(server.Config{Listen: ":8080", Advertise: true}, reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until ctx is cancelled
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # TLS
//
// TLS is enabled when both CertPath and KeyPath are set. TLS 1.2 is the
// minimum version.
//
// # mDNS
//
// With Advertise set the bridge registers "_lifxlan._tcp" carrying the TXT
// records version, devices and tls. discovery.BridgeScanner finds it.
//
// # Thread Safety
//
// Each websocket client has its own write goroutine and a bounded queue.
// A client that falls behind loses events instead of stalling the others.
package server
