package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"oszifox-viewer/internal/acquire"
	"oszifox-viewer/internal/decoder"
	"oszifox-viewer/internal/filter"
	"oszifox-viewer/internal/frame"
	"oszifox-viewer/internal/waveform"
)

type stubSource struct {
	mu   sync.Mutex
	snap *acquire.Snapshot
}

func (s *stubSource) Latest() (acquire.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return acquire.Snapshot{}, false
	}
	return *s.snap, true
}

func (s *stubSource) set(snap acquire.Snapshot) {
	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()
}

func testSnapshot() acquire.Snapshot {
	var f frame.Frame
	copy(f[:], []byte{0x14, 4, 0x08, 0})
	for i := 0; i < frame.NumSamples; i++ {
		f[frame.HeaderSize+i] = 32
	}
	return acquire.Snapshot{Seq: 1, Received: time.Now(), Frame: f, Config: decoder.Decode(f)}
}

func newTestServer(t *testing.T) (*Server, *stubSource, *httptest.Server) {
	t.Helper()
	recon, err := waveform.New(filter.BSpline, 2)
	if err != nil {
		t.Fatal(err)
	}
	src := &stubSource{}
	s := New(src, waveform.NewView(), recon, false)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, src, ts
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestWebSocket(t *testing.T) {
	s, src, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != TypeWaiting || msg.Trace != nil {
		t.Fatalf("first message=%+v, want waiting", msg)
	}

	snap := testSnapshot()
	src.set(snap)
	s.Notify(snap)

	msg := readMessage(t, conn)
	if msg.Type != TypeTrace || msg.Trace == nil {
		t.Fatalf("message type %q, want trace", msg.Type)
	}
	if msg.Trace.Coupling != "AC" || msg.Trace.Range != "10" || msg.Trace.Trigger != "-EXTERNAL" {
		t.Errorf("trace settings %s/%s/%s", msg.Trace.Coupling, msg.Trace.Range, msg.Trace.Trigger)
	}
	if len(msg.Trace.Points) != 2*(frame.NumSamples+2) {
		t.Errorf("%d points", len(msg.Trace.Points))
	}
	y0 := msg.Trace.Points[10].Y

	if err := conn.WriteJSON(Command{Cmd: waveform.CmdUp}); err != nil {
		t.Fatal(err)
	}
	msg = readMessage(t, conn)
	if msg.View.DeltaY != 1 {
		t.Errorf("view after up=%+v", msg.View)
	}
	if d := msg.Trace.Points[10].Y - y0; d < 0.0099 || d > 0.0101 {
		t.Errorf("trace moved by %v, want one step", d)
	}

	if err := conn.WriteJSON(Command{Cmd: waveform.CmdPause}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); !msg.View.Paused {
		t.Errorf("view after pause=%+v", msg.View)
	}
}

func TestTraceEndpoint(t *testing.T) {
	_, src, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/trace")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before data=%d", resp.StatusCode)
	}

	src.set(testSnapshot())
	resp, err = http.Get(ts.URL + "/api/trace")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var tr struct {
		Timebase float64 `json:"timebase"`
		Kernel   string  `json:"kernel"`
		Axis     struct {
			Unit string `json:"unit"`
		} `json:"axis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		t.Fatal(err)
	}
	if tr.Timebase != 5e-6 || tr.Kernel != "bspline" || tr.Axis.Unit != "us" {
		t.Errorf("trace=%+v", tr)
	}
}

func TestViewEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/view", "application/json", strings.NewReader(`{"cmd":"left"}`))
	if err != nil {
		t.Fatal(err)
	}
	var vs waveform.ViewState
	json.NewDecoder(resp.Body).Decode(&vs)
	resp.Body.Close()
	if vs.DeltaX != -1 {
		t.Errorf("view after left=%+v", vs)
	}

	resp, err = http.Post(ts.URL+"/api/view", "application/json", strings.NewReader(`{"cmd":"zoom"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown command: status=%d", resp.StatusCode)
	}
}

func TestIndexPage(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<canvas") {
		t.Errorf("index: status %d, %d bytes", resp.StatusCode, len(body))
	}
}
