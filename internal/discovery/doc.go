// Package discovery finds LIFX bulbs on the local network.
//
// The Engine broadcasts a GetService frame to UDP port 56700 and reads the
// StateService replies on the same socket. Every bulb that answers becomes a
// device.Light handed to a Registrar, normally a registry.Registry.
//
// # Discovery Process
//
// Run works in steps (default 5s):
//  1. The first step broadcasts GetService and resets a countdown (default 180s)
//  2. Each later step takes one step off the countdown
//  3. When the countdown reaches zero the next step broadcasts again
//  4. Replies are handled as they arrive, between steps
//
// A reply from an unknown MAC creates a Light; a reply from a known MAC renews
// the light's address, rebinding its socket only if the address changed.
// Bulbs also announce LightState after power-up, which is treated the same
// way. The all-zero broadcast MAC is never turned into a light.
//
// # Usage Example
//
//	reg := registry.New()
//	engine := discovery.New(reg, discovery.Options{})
//	go engine.Run(ctx)
//	defer engine.Close()
//
// # IPv6
//
// With Options.IPv6Prefix set, lights are addressed at the EUI-64 address
// derived from their MAC inside that prefix instead of the reply's source.
//
// # Bridges
//
// BridgeScanner browses mDNS for lifx-bridge instances advertising
// "_lifxlan._tcp". Multicast must be allowed on the interface (UDP 5353).
package discovery
