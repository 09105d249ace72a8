// Package device turns the LIFX LAN protocol into calls against one bulb.
//
// A Device owns a connected UDP binding to its bulb, a sequence counter and a
// table of outstanding requests. A Light embeds a Device and adds the colour,
// infrared and multi-zone messages.
//
// # Request Workflows
//
// Three delivery modes are offered:
//
//   - FireAndForget: sequence 0, no flags, sent Repeats times RepeatInterval
//     apart. Used by every setter when rapid is true.
//   - RequestAck: ack_required, completes on an Acknowledgement.
//   - RequestResponse: res_required, completes on the named state message.
//
// Correlated requests take a sequence number that is not currently
// outstanding, send the same encoded frame up to Attempts times and wait
// Timeout after each send. A reply completes a request only if it carries the
// request's sequence number and source and the expected message type. After
// the last attempt the request fails with an error satisfying IsOffline and
// the device unregisters itself unless it heard from the bulb within
// UnregisterTimeout.
//
// # Usage Example
//
//	light := device.NewLight(mac, ip, protocol.DefaultPort, device.Options{})
//	light.SetRegistrar(reg)
//	if err := light.Renew(ip, protocol.DefaultPort); err != nil {
//	    return err
//	}
//	defer light.Cleanup()
//
//	if err := light.SetPower(ctx, true, false); device.IsOffline(err) {
//	    // bulb did not acknowledge
//	}
//
// # Caching
//
// Label, location, group, version and both firmware versions are fetched once
// and then served from the cache. Power, colour, infrared and the radio and
// clock reports always go to the bulb. Setters update the cache as soon as the
// request succeeds (or is fired, for rapid sends).
//
// # Thread Safety
//
// All methods are safe for concurrent use. Concurrent requests to the same
// device use distinct sequence numbers and may complete in any order.
package device
