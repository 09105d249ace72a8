package server

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/device/devicetest"
	"github.com/muurk/lifxlan/internal/protocol"
	"github.com/muurk/lifxlan/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	net   *devicetest.Network
	reg   *registry.Registry
	srv   *Server
	http  *httptest.Server
	opts  device.Options
	bulbs map[string]*devicetest.Bulb
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	n := devicetest.NewNetwork()
	reg := registry.New()
	t.Cleanup(reg.Close)

	srv, err := New(Config{}, reg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		net:  n,
		reg:  reg,
		srv:  srv,
		http: ts,
		opts: device.Options{
			Timeout:           20 * time.Millisecond,
			Attempts:          2,
			UnregisterTimeout: time.Hour,
			RepeatInterval:    time.Millisecond,
			Repeats:           2,
			Source:            0xb1d6e,
			Dial:              n.Dial,
		},
		bulbs: make(map[string]*devicetest.Bulb),
	}
}

// addLight registers a light backed by a fake bulb at 10.0.0.<n>.
func (e *testEnv) addLight(t *testing.T, n byte, b *devicetest.Bulb) *device.Light {
	t.Helper()
	b.MAC = protocol.MAC{0xd0, 0x73, 0xd5, 0, 0, n}
	if b.Vendor == 0 {
		b.Vendor, b.Product = 1, 22
	}
	ip := net.IPv4(10, 0, 0, n)
	e.net.Handle(ip.String(), b.Respond)
	e.bulbs[b.MAC.String()] = b

	l := device.NewLight(b.MAC, ip, protocol.DefaultPort, e.opts)
	require.NoError(t, l.Renew(ip, protocol.DefaultPort))
	t.Cleanup(l.Cleanup)
	require.NoError(t, e.reg.RegisterSync(context.Background(), l))
	return l
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	env.addLight(t, 1, &devicetest.Bulb{Label: "Desk", Group: "Office"})
	env.addLight(t, 2, &devicetest.Bulb{Label: "Porch"})

	resp, body = env.do(t, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got []device.Snapshot
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Desk", got[0].Label)
	assert.Equal(t, "Office", got[0].Group)
	assert.Equal(t, "10.0.0.1", got[0].IP)
	assert.Equal(t, "Porch", got[1].Label)
}

func TestGetDevice(t *testing.T) {
	env := newTestEnv(t)
	env.addLight(t, 1, &devicetest.Bulb{Label: "Desk"})

	tests := []struct {
		name       string
		mac        string
		wantStatus int
		wantLabel  string
	}{
		{name: "known", mac: "d0:73:d5:00:00:01", wantStatus: http.StatusOK, wantLabel: "Desk"},
		{name: "upper case", mac: "D0:73:D5:00:00:01", wantStatus: http.StatusOK, wantLabel: "Desk"},
		{name: "unknown", mac: "d0:73:d5:00:00:09", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/devices/"+tt.mac, "")
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				var e ErrorResponse
				require.NoError(t, json.Unmarshal(body, &e))
				assert.Equal(t, "device not found", e.Error)
				return
			}
			var snap device.Snapshot
			require.NoError(t, json.Unmarshal(body, &snap))
			assert.Equal(t, tt.wantLabel, snap.Label)
		})
	}
}

func TestSetPower(t *testing.T) {
	env := newTestEnv(t)
	env.addLight(t, 1, &devicetest.Bulb{})
	env.addLight(t, 2, &devicetest.Bulb{})
	env.bulbs["d0:73:d5:00:00:02"].SetSilent(true)

	tests := []struct {
		name       string
		mac        string
		body       string
		wantStatus int
	}{
		{name: "not json", mac: "d0:73:d5:00:00:01", body: "on", wantStatus: http.StatusBadRequest},
		{name: "missing on", mac: "d0:73:d5:00:00:01", body: `{"duration":10}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", mac: "d0:73:d5:00:00:01", body: `{"on":true,"level":3}`, wantStatus: http.StatusBadRequest},
		{name: "unknown device", mac: "d0:73:d5:00:00:07", body: `{"on":true}`, wantStatus: http.StatusNotFound},
		{name: "offline", mac: "d0:73:d5:00:00:02", body: `{"on":true}`, wantStatus: http.StatusGatewayTimeout},
		{name: "acknowledged", mac: "d0:73:d5:00:00:01", body: `{"on":true,"duration":100}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, "/api/devices/"+tt.mac+"/power", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	_, power, _ := env.bulbs["d0:73:d5:00:00:01"].State()
	assert.Equal(t, protocol.PowerOn, power)
}

func TestSetPower_RapidSendsRepeats(t *testing.T) {
	env := newTestEnv(t)
	env.addLight(t, 1, &devicetest.Bulb{})
	conn := env.net.Last()

	resp, _ := env.do(t, http.MethodPost, "/api/devices/d0:73:d5:00:00:01/power", `{"on":true,"rapid":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Repeats outlive the request
	require.Eventually(t, func() bool {
		return len(conn.SentOfType(protocol.TypeLightSetPower)) == 2
	}, time.Second, 5*time.Millisecond)
	for _, f := range conn.SentOfType(protocol.TypeLightSetPower) {
		assert.False(t, f.AckRequired)
		assert.False(t, f.ResRequired)
	}
}

func TestSetColor(t *testing.T) {
	env := newTestEnv(t)
	env.addLight(t, 1, &devicetest.Bulb{})

	b := &devicetest.Bulb{MAC: protocol.MAC{0xd0, 0x73, 0xd5, 0, 0, 9}, Vendor: 1, Product: 22}
	env.net.Handle("10.0.0.9", b.Respond)
	d := device.New(b.MAC, net.IPv4(10, 0, 0, 9), protocol.DefaultPort, env.opts)
	require.NoError(t, d.Renew(net.IPv4(10, 0, 0, 9), protocol.DefaultPort))
	t.Cleanup(d.Cleanup)
	require.NoError(t, env.reg.RegisterSync(context.Background(), d))

	tests := []struct {
		name       string
		mac        string
		body       string
		wantStatus int
	}{
		{name: "bad colour", mac: "d0:73:d5:00:00:01", body: `{"color":"chartreuse-ish"}`, wantStatus: http.StatusBadRequest},
		{name: "not a light", mac: "d0:73:d5:00:00:09", body: `{"color":"red"}`, wantStatus: http.StatusBadRequest},
		{name: "red", mac: "d0:73:d5:00:00:01", body: `{"color":"#ff0000"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, "/api/devices/"+tt.mac+"/color", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	_, _, c := env.bulbs["d0:73:d5:00:00:01"].State()
	assert.Equal(t, uint16(0), c.Hue)
	assert.Equal(t, uint16(65535), c.Saturation)
	assert.Equal(t, uint16(65535), c.Brightness)
}

func TestSetLabel(t *testing.T) {
	env := newTestEnv(t)
	env.addLight(t, 1, &devicetest.Bulb{Label: "Old"})

	resp, _ := env.do(t, http.MethodPost, "/api/devices/d0:73:d5:00:00:01/label",
		`{"label":"`+strings.Repeat("x", protocol.LabelSize+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/devices/d0:73:d5:00:00:01/label", `{"label":"Kitchen"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap device.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, "Kitchen", snap.Label)

	label, _, _ := env.bulbs["d0:73:d5:00:00:01"].State()
	assert.Equal(t, "Kitchen", label)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.NotEmpty(t, got["version"])
	assert.NotEmpty(t, got["go_version"])
}

func TestWebSocket_StreamsEvents(t *testing.T) {
	env := newTestEnv(t)
	env.addLight(t, 1, &devicetest.Bulb{Label: "Desk"})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.srv.relayEvents(ctx)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return env.srv.Hub().ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	resp, _ := env.do(t, http.MethodPost, "/api/devices/d0:73:d5:00:00:01/power", `{"on":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev registry.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, registry.EventChanged, ev.Kind)
	assert.Equal(t, "d0:73:d5:00:00:01", ev.MAC)
	assert.Equal(t, "Desk", ev.Device.Label)
	require.NotNil(t, ev.Device.Power)
	assert.True(t, *ev.Device.Power)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.srv.Hub().ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestHub_DropsForSlowClient(t *testing.T) {
	h := NewHub()
	c := &client{id: uuid.New(), hub: h, send: make(chan []byte, 1)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.Broadcast(registry.Event{Kind: registry.EventChanged, MAC: "d0:73:d5:00:00:01"})
	h.Broadcast(registry.Event{Kind: registry.EventChanged, MAC: "d0:73:d5:00:00:02"})

	require.Len(t, c.send, 1)
	assert.Contains(t, string(<-c.send), "d0:73:d5:00:00:01")

	h.unregister(c)
	h.unregister(c)
	_, open := <-c.send
	assert.False(t, open)
	assert.Equal(t, 0, h.ClientCount())
}

func TestAdvertTXT(t *testing.T) {
	tests := []struct {
		name    string
		tls     bool
		devices int
		want    []string
	}{
		{name: "plain", tls: false, devices: 0, want: []string{"devices=0", "tls=0"}},
		{name: "tls", tls: true, devices: 12, want: []string{"devices=12", "tls=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := advertTXT(tt.tls, tt.devices)
			assert.Len(t, got, 3)
			assert.True(t, strings.HasPrefix(got[0], "version="))
			assert.Equal(t, tt.want, got[1:])
		})
	}
}

func selfSigned(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "lifx-bridge"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func TestNewTLSConfig(t *testing.T) {
	certPEM, keyPEM := selfSigned(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	cfg, err := NewTLSConfig(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Len(t, cfg.Certificates, 1)

	info := GetTLSInfo(cfg)
	assert.Equal(t, "TLS 1.2", info["min_version"])
	assert.Equal(t, "TLS 1.3", info["max_version"])

	require.NoError(t, os.WriteFile(certPath, []byte("nope"), 0o600))
	_, err = NewTLSConfig(certPath, keyPath)
	assert.Error(t, err)
}

func TestNew_MissingCertificate(t *testing.T) {
	_, err := New(Config{CertPath: "/nonexistent/cert.pem", KeyPath: "/nonexistent/key.pem"}, registry.New())
	assert.Error(t, err)
}

func TestStart_ServesUntilCancelled(t *testing.T) {
	reg := registry.New()
	t.Cleanup(reg.Close)
	srv, err := New(Config{Listen: "127.0.0.1:0"}, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr().String() + "/api/devices")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
