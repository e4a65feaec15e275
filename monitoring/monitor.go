// Package monitoring serves the live state of a running driver over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/fractalhost/accel"
	"github.com/sarchlab/fractalhost/hooking"
	"github.com/sarchlab/fractalhost/id"
)

// RequestState is the monitor's copy of the latest request.
type RequestState struct {
	ID      string
	Kind    string
	Control string
	Seed    accel.Seed
	Frame   int
	Polls   int
	Error   string
}

// AcceleratorState is what the monitor knows about a driver.
type AcceleratorState struct {
	Driver    string
	Requests  int
	Failures  int
	Animating bool
	Last      RequestState
}

// Monitor is a hook that watches drivers and exposes what it sees through a
// web server. It never touches the registers itself.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration
	idGen           id.IDGenerator

	mu           sync.Mutex
	state        AcceleratorState
	progressBars []*ProgressBar
	animation    *ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		idGen:           id.NewIDGenerator(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// Func updates the monitor state from a driver hook.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		m.state.Driver = named.Name()
	}

	switch ctx.Pos {
	case accel.HookPosAnimationStart:
		frames := ctx.Item.(accel.FrameProgram)
		m.animation = m.createProgressBar("Animation", uint64(len(frames)))
		m.state.Animating = true
	case accel.HookPosAnimationDone:
		m.completeProgressBar(m.animation)
		m.animation = nil
		m.state.Animating = false
	case accel.HookPosRequestStart:
		req := ctx.Item.(*accel.Request)
		if req.Kind == accel.KindAnimationFrame && m.animation != nil {
			m.animation.IncrementInProgress(1)
		}
	case accel.HookPosRequestDone:
		m.requestDone(ctx.Item.(*accel.Request))
	}
}

func (m *Monitor) requestDone(req *accel.Request) {
	m.state.Requests++
	m.state.Last = RequestState{
		ID:      req.ID,
		Kind:    req.Kind.String(),
		Control: req.Control.String(),
		Seed:    req.Seed,
		Frame:   req.Frame,
		Polls:   req.Polls,
	}

	if req.Err != nil {
		m.state.Failures++
		m.state.Last.Error = req.Err.Error()

		if req.Kind == accel.KindAnimationFrame && m.animation != nil {
			m.completeProgressBar(m.animation)
			m.animation = nil
			m.state.Animating = false
		}

		return
	}

	if req.Kind == accel.KindAnimationFrame && m.animation != nil {
		m.animation.MoveInProgressToFinished(1)
	}
}

// State returns a copy of the current accelerator state.
func (m *Monitor) State() AcceleratorState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Monitor) createProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGen.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBars = append(m.progressBars, bar)

	return bar
}

func (m *Monitor) completeProgressBar(pb *ProgressBar) {
	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitoring API.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/accelerator", m.accelerator).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("monitoring: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring accelerator with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "monitoring: %v\n", err)
		}
	}()

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	bars := make([]json.RawMessage, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		b.Lock()
		data, err := json.Marshal(b)
		b.Unlock()

		if err != nil {
			m.mu.Unlock()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		bars = append(bars, data)
	}
	m.mu.Unlock()

	writeJSON(w, bars)
}

func (m *Monitor) accelerator(w http.ResponseWriter, _ *http.Request) {
	state := m.State()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&state)
	serializer.SetMaxDepth(1)

	w.Header().Set("Content-Type", "application/json")
	if err := serializer.Serialize(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
