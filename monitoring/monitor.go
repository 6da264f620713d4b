// Package monitoring serves the state of a paged memory engine over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/monitoring/web"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns an engine into a server that allows external inspection and
// control.
type Monitor struct {
	manager         paging.Manager
	counter         *tracing.EventCounter
	portNumber      int
	openBrowser     bool
	profileDuration time.Duration

	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
}

// minPortNumber is the lowest port the monitor binds to. Lower ports are
// replaced by a random one.
const minPortNumber = 1000

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < minPortNumber {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterManager registers the engine to serve. The manager must be safe
// for concurrent use, such as a paging.Synchronized.
func (m *Monitor) RegisterManager(manager paging.Manager) {
	m.manager = manager
}

// RegisterEventCounter registers the counter served at /api/events.
func (m *Monitor) RegisterEventCounter(c *tracing.EventCounter) {
	m.counter = c
}

// Router returns the handler of all the monitor routes.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())

	r.HandleFunc("/api/state", m.reportState).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", m.listJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", m.admitJob).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}", m.jobDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}", m.removeJob).Methods(http.MethodDelete)
	r.HandleFunc("/api/translate/{id}/{addr}", m.translate).
		Methods(http.MethodGet)
	r.HandleFunc("/api/events", m.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/field/{path}", m.listFieldValue).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber >= minPortNumber {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring memory with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	if m.openBrowser {
		err := browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %v\n", err)
		}
	}

	return url
}

// StopServer shuts the server down if it is running.
func (m *Monitor) StopServer() {
	if m.server == nil {
		return
	}

	err := m.server.Close()
	dieOnErr(err)

	m.server = nil
	m.listener = nil
}

func (m *Monitor) reportState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.manager.ReportState())
}

func (m *Monitor) listJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.manager.ReportState().Jobs)
}

func (m *Monitor) jobDetails(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIntVar(w, r, "id")
	if !ok {
		return
	}

	job, found := m.manager.ReportState().FindJob(paging.JobID(jobID))
	if !found {
		writeJSON(w, http.StatusNotFound, errorRsp{
			Kind:    paging.JobNotFound.String(),
			Message: fmt.Sprintf("job ID %d not found", jobID),
		})

		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (m *Monitor) listEvents(w http.ResponseWriter, _ *http.Request) {
	if m.counter == nil {
		writeJSON(w, http.StatusNotFound, errorRsp{
			Message: "events are not counted",
		})

		return
	}

	writeJSON(w, http.StatusOK, m.counter.Stats())
}

type admitReq struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (m *Monitor) admitJob(w http.ResponseWriter, r *http.Request) {
	req := admitReq{}

	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRsp{Message: err.Error()})
		return
	}

	admission, err := m.manager.AdmitJob(req.Name, req.Size)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, admission)
}

func (m *Monitor) removeJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIntVar(w, r, "id")
	if !ok {
		return
	}

	removal, err := m.manager.RemoveJob(paging.JobID(jobID))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, removal)
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseIntVar(w, r, "id")
	if !ok {
		return
	}

	addr, ok := parseIntVar(w, r, "addr")
	if !ok {
		return
	}

	translation, err := m.manager.TranslateAddress(paging.JobID(jobID), addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, translation)
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	fieldPath := mux.Vars(r)["path"]
	fields := strings.Split(fieldPath, ".")

	snapshot := m.manager.ReportState()

	_, err := walkFields(&snapshot, fieldPath)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorRsp{Message: err.Error()})
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(2)

	err = serializer.SetEntryPoint(fields)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	err = serializer.Serialize(w)
	dieOnErr(err)
}

type fieldNotFoundError struct {
	field string
}

func (e fieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found", e.field)
}

// walkFields follows a dotted path of struct field names and slice indices.
func walkFields(root any, fields string) (reflect.Value, error) {
	elem := reflect.ValueOf(root)

	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			if elem.IsNil() {
				return elem, fieldNotFoundError{fieldNames[0]}
			}

			elem = elem.Elem()
		case reflect.Struct:
			elem = elem.FieldByName(fieldNames[0])
			if !elem.IsValid() {
				return elem, fieldNotFoundError{fieldNames[0]}
			}

			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldNotFoundError{fieldNames[0]}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldNotFoundError{fieldNames[0]}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem, nil
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

	writeJSON(w, http.StatusOK, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		writeJSON(w, http.StatusConflict, errorRsp{Message: err.Error()})
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, http.StatusOK, prof)
}

type errorRsp struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	switch {
	case paging.IsInternal(err):
		status = http.StatusInternalServerError
	case errors.Is(err, paging.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, paging.ErrInsufficientFrames):
		status = http.StatusConflict
	}

	writeJSON(w, status, errorRsp{
		Kind:    paging.KindOf(err).String(),
		Message: err.Error(),
	})
}

func parseIntVar(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	s := mux.Vars(r)[name]

	v, err := strconv.Atoi(s)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRsp{
			Message: fmt.Sprintf("%s must be an integer, got %q", name, s),
		})

		return 0, false
	}

	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
