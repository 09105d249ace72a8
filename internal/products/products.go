// Package products maps LIFX vendor and product ids to names and features.
package products

// VendorLIFX is the only vendor id LIFX firmware reports.
const VendorLIFX = 1

// Product describes one hardware model.
type Product struct {
	Name      string
	Color     bool
	Infrared  bool
	MultiZone bool
}

var lifx = map[uint32]Product{
	1:  {Name: "Original 1000", Color: true},
	3:  {Name: "Color 650", Color: true},
	10: {Name: "White 800 (Low Voltage)"},
	11: {Name: "White 800 (High Voltage)"},
	18: {Name: "White 900 BR30 (Low Voltage)"},
	20: {Name: "Color 1000 BR30", Color: true},
	22: {Name: "Color 1000", Color: true},
	27: {Name: "LIFX A19", Color: true},
	28: {Name: "LIFX BR30", Color: true},
	29: {Name: "LIFX+ A19", Color: true, Infrared: true},
	30: {Name: "LIFX+ BR30", Color: true, Infrared: true},
	31: {Name: "LIFX Z", Color: true, MultiZone: true},
	32: {Name: "LIFX Z 2", Color: true, MultiZone: true},
	36: {Name: "LIFX Downlight", Color: true},
	37: {Name: "LIFX Downlight", Color: true},
	38: {Name: "LIFX Beam", Color: true, MultiZone: true},
	43: {Name: "LIFX A19", Color: true},
	44: {Name: "LIFX BR30", Color: true},
	45: {Name: "LIFX+ A19", Color: true, Infrared: true},
	46: {Name: "LIFX+ BR30", Color: true, Infrared: true},
	49: {Name: "LIFX Mini", Color: true},
	50: {Name: "LIFX Mini Day and Dusk"},
	51: {Name: "LIFX Mini White"},
	52: {Name: "LIFX GU10", Color: true},
	55: {Name: "LIFX Tile", Color: true},
	59: {Name: "LIFX Mini Color", Color: true},
}

// Lookup returns the product for a vendor/product pair.
func Lookup(vendor, product uint32) (Product, bool) {
	if vendor != VendorLIFX {
		return Product{}, false
	}
	p, ok := lifx[product]
	return p, ok
}

// Name returns the product name, or "Unknown".
func Name(product uint32) string {
	if p, ok := lifx[product]; ok {
		return p.Name
	}
	return "Unknown"
}
