// Package monitoring provides an HTTP server to inspect and control a running
// panel.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/telepanel/monitoring/web"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/timing"
	"github.com/sarchlab/telepanel/widget"
)

// A Scene can copy the shapes it displays.
type Scene interface {
	Snapshot() []render.ShapeSnapshot
}

// Monitor turns a panel into a server that allows external inspection and
// control of its event loop.
type Monitor struct {
	engine     timing.Engine
	scene      Scene
	portNumber int
	profileFor time.Duration

	lock    sync.Mutex
	widgets []widget.Widget
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{profileFor: time.Second}
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

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileFor = d
	return m
}

// RegisterEngine registers the engine that runs the panel.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.engine = e
}

// RegisterScene registers the surface the widgets draw on.
func (m *Monitor) RegisterScene(s Scene) {
	m.scene = s
}

// RegisterWidget registers a widget to be monitored.
func (m *Monitor) RegisterWidget(w widget.Widget) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.widgets = append(m.widgets, w)
}

// Router returns the routes of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_widgets", m.listWidgets)
	r.HandleFunc("/api/widget/{name}", m.widgetDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/scene", m.sceneSnapshot)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor in the background and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring panel with %s\n", url)

	srv := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := srv.Serve(listener)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	m.engine.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

type widgetRsp struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Alive bool   `json:"alive"`
}

func (m *Monitor) listWidgets(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := make([]widgetRsp, 0, len(m.widgets))
	for _, wd := range m.widgets {
		rsp = append(rsp, widgetRsp{
			Name:  wd.Name(),
			Kind:  wd.Kind(),
			Alive: wd.Alive(),
		})
	}
	m.lock.Unlock()

	sort.Slice(rsp, func(i, j int) bool { return rsp[i].Name < rsp[j].Name })

	writeJSON(w, rsp)
}

func (m *Monitor) widgetDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	wd := m.findWidgetOr404(w, name)
	if wd == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(wd)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	WidgetName string `json:"widget_name,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	wd := m.findWidgetOr404(w, req.WidgetName)
	if wd == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(wd)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findWidgetOr404(
	w http.ResponseWriter,
	name string,
) widget.Widget {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, wd := range m.widgets {
		if wd.Name() == name {
			return wd
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Widget not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) sceneSnapshot(w http.ResponseWriter, _ *http.Request) {
	if m.scene == nil {
		writeJSON(w, []render.ShapeSnapshot{})
		return
	}

	writeJSON(w, m.scene.Snapshot())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(m.profileFor)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
