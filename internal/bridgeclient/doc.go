// Package bridgeclient is a Go client for the lifx-bridge HTTP API.
//
// It is what lifxctl uses to drive bulbs through a bridge on another
// machine instead of broadcasting locally:
//
//	bridges, _ := discovery.ScanForBridges(ctx, 3*time.Second)
//	c := bridgeclient.NewClient(bridges[0].BaseURL())
//	snap, err := c.SetPower(ctx, "d0:73:d5:00:00:01", true, 500, false)
//	if bridgeclient.IsOffline(err) {
//	    // the bridge is up but the bulb did not answer
//	}
//
// # Retries
//
// Network failures and 503 replies are retried with exponential backoff.
// Unknown devices, rejected commands and offline bulbs are not.
package bridgeclient
