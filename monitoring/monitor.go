// Package monitoring serves the live state of a replay over HTTP so that
// long traces can be watched while they run.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"

	"github.com/sarchlab/cachereplay/mem/cache"
)

// A Source exposes the live state of one replay run to the monitor. The
// implementation must be safe to call from the monitor's HTTP goroutines
// while the replay is in progress.
type Source interface {
	RunID() string
	EventCount() uint64
	Caches() []CacheStatus
}

// CacheStatus is the counter snapshot of one cache, labeled by name.
type CacheStatus struct {
	Name            string      `json:"name"`
	PrefetchEnabled bool        `json:"prefetch_enabled"`
	Stats           cache.Stats `json:"stats"`
}

// Monitor can turn a replay run into a server and allows external
// observation of its progress.
type Monitor struct {
	portNumber int
	openPage   bool
	sources    []Source
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the stats page in a browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openPage = true
	return m
}

// RegisterRun registers a replay run to be monitored.
func (m *Monitor) RegisterRun(s Source) {
	m.sources = append(m.sources, s)
}

// StartServer starts the monitoring server. It returns after the listener
// is in place; serving continues in the background.
func (m *Monitor) StartServer() error {
	r := mux.NewRouter()
	r.HandleFunc("/api/runs", m.listRuns)
	r.HandleFunc("/api/stats/{id}", m.listStats)
	r.HandleFunc("/api/progress/{id}", m.listProgress)
	r.HandleFunc("/api/resource", m.listResources)

	actualPort := ":0"
	if m.portNumber > 0 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring replay with %s\n", url)

	go func() {
		if err := http.Serve(listener, r); err != nil {
			fmt.Fprintf(os.Stderr, "Monitoring server error: %s\n", err)
		}
	}()

	if m.openPage {
		if err := browser.OpenURL(url + "/api/runs"); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	return nil
}

func (m *Monitor) listRuns(w http.ResponseWriter, _ *http.Request) {
	ids := make([]string, 0, len(m.sources))
	for _, s := range m.sources {
		ids = append(ids, s.RunID())
	}

	m.writeJSON(w, ids)
}

func (m *Monitor) listStats(w http.ResponseWriter, r *http.Request) {
	s, ok := m.findRunOr404(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	m.writeJSON(w, s.Caches())
}

type progressRsp struct {
	RunID      string `json:"run_id"`
	EventCount uint64 `json:"event_count"`
}

func (m *Monitor) listProgress(w http.ResponseWriter, r *http.Request) {
	s, ok := m.findRunOr404(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	m.writeJSON(w, progressRsp{
		RunID:      s.RunID(),
		EventCount: s.EventCount(),
	})
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

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) findRunOr404(
	w http.ResponseWriter,
	id string,
) (Source, bool) {
	for _, s := range m.sources {
		if s.RunID() == id {
			return s, true
		}
	}

	http.Error(w, "run "+id+" not found", http.StatusNotFound)

	return nil, false
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := w.Write(bytes); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot write response: %s\n", err)
	}
}
