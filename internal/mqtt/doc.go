// Package mqtt mirrors the device registry onto an MQTT broker.
//
// Every device gets a retained JSON snapshot on <prefix>/<mac>/state, and
// lights accept commands on <prefix>/<mac>/set:
//
//	{"power":"on","color":"#ff8800","duration":500,"rapid":false}
//
// A bare "on" or "off" payload also works. The bridge's availability is
// retained on <prefix>/bridge/status; the broker publishes "offline" there
// through the last will if the bridge disappears.
//
// # Usage Example
//
//	client, err := mqtt.Connect(cfg.Bridge.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	bridge := mqtt.NewBridge(client, reg, cfg.Bridge.MQTT.TopicPrefix, cfg.Bridge.MQTT.QoS)
//	go bridge.Run(ctx)
//
// # Reconnection
//
// paho reconnects on its own. Client remembers its subscriptions and
// restores them, and republishes "online", after every reconnect.
package mqtt
