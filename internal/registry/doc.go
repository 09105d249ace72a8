// Package registry keeps the set of bulbs that are currently answering.
//
// A root Registry is created with New and handed to each device as its
// Registrar. Devices register themselves when traffic arrives and the registry
// fetches their label, group, location, version and firmware before adding
// them. Devices that stop answering unregister themselves.
//
// ByGroup, ByLabel and ByMAC return views that share the root's list. Values
// within one filter are alternatives; separate filters must all match:
//
//	reg.ByGroup("Kitchen", "Lounge").ByLabel("Lamp") // Lamp in either room
//
// DoForEvery and the bulk setters run concurrently across the view. An
// offline device does not fail the call.
package registry
