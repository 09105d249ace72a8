package device_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/device/devicetest"
	"github.com/muurk/lifxlan/internal/protocol"
)

func TestCharacteristicsString(t *testing.T) {
	n := devicetest.NewNetwork()
	bulb := &devicetest.Bulb{MAC: testMAC, Label: "Porch", Location: "Home", Group: "Outside", Power: protocol.PowerOff}
	n.Default = bulb.Respond
	l, _ := newLight(t, n, testOptions(n))

	before := l.CharacteristicsString("  ")
	if !strings.Contains(before, "Power: Unknown\n") {
		t.Errorf("CharacteristicsString() before fetch = %q, want unknown power", before)
	}

	if err := l.FetchMetadata(context.Background()); err != nil {
		t.Fatalf("FetchMetadata() error = %v", err)
	}
	if _, err := l.Power(context.Background()); err != nil {
		t.Fatalf("Power() error = %v", err)
	}

	want := "Porch\n" +
		"  MAC Address: d0:73:d5:01:02:03\n" +
		"  IP Address: 192.168.1.10\n" +
		"  Port: 56700\n" +
		"  Power: Off\n" +
		"  Location: Home\n" +
		"  Group: Outside\n"
	if got := l.CharacteristicsString("  "); got != want {
		t.Errorf("CharacteristicsString() = %q, want %q", got, want)
	}
}

func TestFirmwareAndProductString(t *testing.T) {
	n := devicetest.NewNetwork()
	bulb := &devicetest.Bulb{MAC: testMAC, Vendor: 1, Product: 22, HostVersion: 1<<16 | 5, WifiVersion: 3<<16 | 9}
	n.Default = bulb.Respond
	l, _ := newLight(t, n, testOptions(n))

	if got := l.ProductString("\t"); got != "Vendor: None\n\tProduct: Unknown\n\tVersion: None\n" {
		t.Errorf("ProductString() before fetch = %q", got)
	}

	if err := l.FetchMetadata(context.Background()); err != nil {
		t.Fatalf("FetchMetadata() error = %v", err)
	}

	if got, want := l.ProductString("\t"), "Vendor: 1\n\tProduct: Color 1000\n\tVersion: 0\n"; got != want {
		t.Errorf("ProductString() = %q, want %q", got, want)
	}

	fw := l.FirmwareString("  ")
	for _, want := range []string{
		"Host Firmware Build Timestamp: 1500000000000000000 (2017-07-14 02:40:00 UTC)\n",
		"  Host Firmware Build Version: 1.5\n",
		"  Wifi Firmware Build Version: 3.9\n",
	} {
		if !strings.Contains(fw, want) {
			t.Errorf("FirmwareString() = %q, want it to contain %q", fw, want)
		}
	}
}

func TestFormatInfo(t *testing.T) {
	info := device.Info{Time: 0, Uptime: 5400000000000, Downtime: 0}
	want := "Current Time: 0 (1970-01-01 00:00:00 UTC)\n" +
		"  Uptime (ns): 5400000000000 (1.5 hours)\n" +
		"  Last Downtime Duration +/-5s (ns): 0 (0 hours)\n"
	if got := device.FormatInfo(info, "  "); got != want {
		t.Errorf("FormatInfo() = %q, want %q", got, want)
	}
}

func TestFormatRadio(t *testing.T) {
	got := device.FormatRadio(device.Radio{Signal: 0.5, Tx: 10, Rx: 20}, "  ")
	want := "Wifi Signal Strength (mW): 0.5\n  Wifi TX (bytes): 10\n  Wifi RX (bytes): 20\n"
	if got != want {
		t.Errorf("FormatRadio() = %q, want %q", got, want)
	}
}

func TestSnapshot_JSON(t *testing.T) {
	n := devicetest.NewNetwork()
	bulb := &devicetest.Bulb{
		MAC:   testMAC,
		Label: "Desk",
		Power: protocol.PowerOn,
		Color: protocol.HSBK{Hue: 0, Saturation: 65535, Brightness: 65535, Kelvin: 3500},
	}
	n.Default = bulb.Respond
	l, _ := newLight(t, n, testOptions(n))

	if _, err := l.Color(context.Background()); err != nil {
		t.Fatalf("Color() error = %v", err)
	}

	data, err := json.Marshal(l.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got["mac"] != "d0:73:d5:01:02:03" || got["label"] != "Desk" || got["power"] != true || got["hex"] != "#ff0000" {
		t.Errorf("snapshot = %s", data)
	}
	if _, ok := got["version"]; ok {
		t.Errorf("snapshot has version before it was fetched: %s", data)
	}
}
