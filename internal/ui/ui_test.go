package ui

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/device/devicetest"
	"github.com/muurk/lifxlan/internal/protocol"
	"github.com/muurk/lifxlan/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampWidth(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: MinTerminalWidth},
		{in: 59, want: MinTerminalWidth},
		{in: 80, want: 80},
		{in: 500, want: MaxContentWidth},
	}
	for _, tt := range tests {
		if got := clampWidth(tt.in); got != tt.want {
			t.Errorf("clampWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHeader_ParamsInOrder(t *testing.T) {
	out := NewHeader("discovery", "lifxctl discover",
		Field{Key: "Wait", Value: "3s"},
		Field{Key: "Attempts", Value: "3"},
		Field{Key: "Address", Value: "255.255.255.255"},
	).SetWidth(80).Render()

	if !strings.Contains(out, "DISCOVERY") {
		t.Errorf("title not upper-cased:\n%s", out)
	}
	wait, attempts, addr := strings.Index(out, "Wait:"), strings.Index(out, "Attempts:"), strings.Index(out, "Address:")
	if wait < 0 || attempts < wait || addr < attempts {
		t.Errorf("params out of order (%d, %d, %d):\n%s", wait, attempts, addr, out)
	}
}

func TestResult_Render(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Power on", Field{Key: "Lights", Value: "3"}),
			want:   []string{"SUCCESS", "Power on", "Lights:", "3"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Color change failed", errors.New("boom"), []string{"check the bulb"}),
			want:   []string{"FAILED", "Error: boom", "Troubleshooting:", "check the bulb"},
		},
		{
			name:   "warning",
			result: NewWarningResult("Nothing matched", Field{Key: "Filter", Value: "group=Den"}),
			want:   []string{"WARNING", "Nothing matched", "group=Den"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(100).Render()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "yes\n", want: true},
		{input: "YES\n", want: true},
		{input: "  yes  \n", want: true},
		{input: "yes", want: true},
		{input: "y\n", want: false},
		{input: "no\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Power off every light", []string{"No filter given"})
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "No filter given") {
				t.Errorf("warning not printed:\n%s", out.String())
			}
		})
	}
}

func TestScanProgress(t *testing.T) {
	p := NewScanProgress("Discovering bulbs...", 2*time.Second).SetWidth(80)
	assert.Zero(t, p.Percent())

	p.Advance(time.Second)
	assert.InDelta(t, 0.5, p.Percent(), 0.001)

	p.Advance(5 * time.Second)
	assert.InDelta(t, 1.0, p.Percent(), 0.001)

	p.AddFound("Desk")
	out := p.Render()
	assert.Contains(t, out, "Discovering bulbs...")
	assert.Contains(t, out, "1 found")
	assert.Contains(t, out, "Desk")

	assert.InDelta(t, 1.0, (&ScanProgress{}).Percent(), 0.001)
}

func TestRenderDevices(t *testing.T) {
	on := true
	out := RenderDevices([]device.Snapshot{
		{MAC: "d0:73:d5:00:00:01", Label: "Desk", Group: "Study", IP: "10.0.0.1", Port: 56700, Power: &on, Hex: "#ff0000"},
		{MAC: "d0:73:d5:00:00:02", Label: "Porch", IP: "10.0.0.2", Port: 56700},
	}, 100)

	for _, want := range []string{"MAC", "Label", "Desk", "Porch", "#ff0000", "10.0.0.1:56700", "on", "?"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_PrintDevicesEmpty(t *testing.T) {
	var out bytes.Buffer
	NewPrinter(&out).SetWidth(80).PrintDevices(nil)
	assert.Contains(t, out.String(), "No devices found")
}

func TestPrinter_PrintErrorOffline(t *testing.T) {
	var out bytes.Buffer
	NewPrinter(&out).SetWidth(100).PrintError("Power change failed", device.NewOfflineError("d0:73:d5:00:00:01", 3, "SetPower"))
	assert.Contains(t, out.String(), "Troubleshooting:")
}

type watchEnv struct {
	reg   *registry.Registry
	bulb  *devicetest.Bulb
	model WatchModel
}

func newWatchEnv(t *testing.T) *watchEnv {
	t.Helper()
	n := devicetest.NewNetwork()
	reg := registry.New()
	t.Cleanup(reg.Close)

	b := &devicetest.Bulb{MAC: protocol.MAC{0xd0, 0x73, 0xd5, 0, 0, 1}, Label: "Desk", Vendor: 1, Product: 22}
	n.Handle("10.0.0.1", b.Respond)
	l := device.NewLight(b.MAC, net.IPv4(10, 0, 0, 1), protocol.DefaultPort, device.Options{
		Timeout:           20 * time.Millisecond,
		Attempts:          2,
		UnregisterTimeout: time.Hour,
		RepeatInterval:    time.Millisecond,
		Source:            0x3177,
		Dial:              n.Dial,
	})
	require.NoError(t, l.Renew(net.IPv4(10, 0, 0, 1), protocol.DefaultPort))
	t.Cleanup(l.Cleanup)
	require.NoError(t, reg.RegisterSync(context.Background(), l))

	m := NewWatchModel(context.Background(), reg, 0)
	t.Cleanup(m.Close)
	return &watchEnv{reg: reg, bulb: b, model: m}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m WatchModel, msg tea.Msg) (WatchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(WatchModel)
	require.True(t, ok)
	return wm, cmd
}

func TestWatchModel_SeedsFromRegistry(t *testing.T) {
	env := newWatchEnv(t)
	assert.Equal(t, []string{"d0:73:d5:00:00:01"}, env.model.Rows())
	assert.Contains(t, env.model.View(), "LIFX DEVICES  (1)")
}

func TestWatchModel_Events(t *testing.T) {
	env := newWatchEnv(t)

	m, cmd := update(t, env.model, eventMsg{
		Kind:   registry.EventRegistered,
		MAC:    "d0:73:d5:00:00:00",
		Device: device.Snapshot{MAC: "d0:73:d5:00:00:00", Label: "Hall"},
	})
	assert.NotNil(t, cmd, "event pump should be re-armed")
	assert.Equal(t, []string{"d0:73:d5:00:00:00", "d0:73:d5:00:00:01"}, m.Rows())

	m, _ = update(t, m, eventMsg{Kind: registry.EventChanged, MAC: "d0:73:d5:00:00:00",
		Device: device.Snapshot{MAC: "d0:73:d5:00:00:00", Label: "Hallway"}})
	assert.Contains(t, m.View(), "Hallway")

	m, _ = update(t, m, eventMsg{Kind: registry.EventUnregistered, MAC: "d0:73:d5:00:00:00"})
	assert.Equal(t, []string{"d0:73:d5:00:00:01"}, m.Rows())
}

func TestWatchModel_Keys(t *testing.T) {
	tests := []struct {
		name     string
		key      tea.KeyMsg
		wantQuit bool
		editing  bool
	}{
		{name: "q quits", key: runes("q"), wantQuit: true},
		{name: "ctrl+c quits", key: tea.KeyMsg{Type: tea.KeyCtrlC}, wantQuit: true},
		{name: "l opens rename", key: runes("l"), editing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newWatchEnv(t)
			m, cmd := update(t, env.model, tt.key)
			if tt.wantQuit {
				require.NotNil(t, cmd)
				_, ok := cmd().(tea.QuitMsg)
				assert.True(t, ok)
			}
			assert.Equal(t, tt.editing, m.Editing())
		})
	}
}

func TestWatchModel_RenameCancel(t *testing.T) {
	env := newWatchEnv(t)

	m, _ := update(t, env.model, runes("l"))
	require.True(t, m.Editing())
	assert.Equal(t, "Desk", m.Input.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Editing())

	label, _, _ := env.bulb.State()
	assert.Equal(t, "Desk", label)
}

func TestWatchModel_RenameSubmits(t *testing.T) {
	env := newWatchEnv(t)

	m, _ := update(t, env.model, runes("l"))
	m.Input.SetValue("Lamp")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.Editing())

	done, ok := cmd().(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	label, _, _ := env.bulb.State()
	assert.Equal(t, "Lamp", label)

	m, _ = update(t, m, done)
	assert.Contains(t, m.View(), "rename")
}

func TestWatchModel_TogglePower(t *testing.T) {
	env := newWatchEnv(t)

	_, cmd := update(t, env.model, runes("p"))
	require.NotNil(t, cmd)
	done, ok := cmd().(actionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	_, power, _ := env.bulb.State()
	assert.Equal(t, protocol.PowerOn, power)
}

func TestWatchModel_OfflineStatus(t *testing.T) {
	env := newWatchEnv(t)
	env.bulb.SetSilent(true)

	m, cmd := update(t, env.model, runes("p"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.View(), "is offline")
}

func TestScanModel(t *testing.T) {
	events := make(chan registry.Event, 1)
	m := NewScanModel("Discovering bulbs...", time.Hour, events)

	next, cmd := m.Update(eventMsg{
		Kind:   registry.EventRegistered,
		MAC:    "d0:73:d5:00:00:01",
		Device: device.Snapshot{MAC: "d0:73:d5:00:00:01", Label: "Desk"},
	})
	assert.NotNil(t, cmd)
	m = next.(ScanModel)
	assert.Equal(t, []string{"Desk  d0:73:d5:00:00:01"}, m.Progress.Found)

	next, cmd = m.Update(scanTickMsg(time.Now()))
	m = next.(ScanModel)
	require.NotNil(t, cmd)
	assert.Less(t, m.Progress.Percent(), 1.0)

	m.Progress.Total = time.Nanosecond
	_, cmd = m.Update(scanTickMsg(time.Now()))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)

	next, _ = m.Update(runes("q"))
	assert.True(t, next.(ScanModel).Cancelled)
}
