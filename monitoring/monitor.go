// Package monitoring turns a running network into an HTTP server that reports
// the state of its nodes, channels and buffers.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/netsim/noc/networking"
	"github.com/sarchlab/netsim/sim/queueing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor serves the state of a topology.
type Monitor struct {
	topology   *networking.Topology
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor for the topology.
func NewMonitor(topology *networking.Topology) *Monitor {
	return &Monitor{topology: topology}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the report.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/nodes", m.listNodes).Methods(http.MethodGet)
	r.HandleFunc("/api/node/{id}", m.nodeDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/node/{id}/unactive/{value}", m.setNodeUnactive).
		Methods(http.MethodPost)
	r.HandleFunc("/api/channels", m.listChannels).Methods(http.MethodGet)
	r.HandleFunc("/api/buffers", m.listBuffers).Methods(http.MethodGet)
	r.HandleFunc("/api/step", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring network with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Handler())
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Panic(err)
		}
	}()

	return url, nil
}

type nodeRsp struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unactive bool   `json:"unactive"`
	Outgoing int    `json:"outgoing"`
	Received int    `json:"received"`
}

func makeNodeRsp(n *networking.Node) nodeRsp {
	return nodeRsp{
		ID:       n.ID().String(),
		Name:     n.Name(),
		Unactive: n.IsUnactive(),
		Outgoing: n.Buffer().Count(),
		Received: n.ReceivedMessages().Count(),
	}
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	nodes := m.topology.Nodes()

	rsp := make([]nodeRsp, 0, len(nodes))
	for _, n := range nodes {
		rsp = append(rsp, makeNodeRsp(n))
	}

	writeJSON(w, rsp)
}

func (m *Monitor) findNodeOr404(
	w http.ResponseWriter,
	nodeID string,
) *networking.Node {
	for _, n := range m.topology.Nodes() {
		if n.ID().String() == nodeID {
			return n
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Node not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) nodeDetails(w http.ResponseWriter, r *http.Request) {
	node := m.findNodeOr404(w, mux.Vars(r)["id"])
	if node == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(node)
	serializer.SetMaxDepth(2)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) setNodeUnactive(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	unactive, err := strconv.ParseBool(vars["value"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	node := m.findNodeOr404(w, vars["id"])
	if node == nil {
		return
	}

	node.SetIsUnactive(unactive)

	writeJSON(w, makeNodeRsp(node))
}

type channelRsp struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Busy     bool   `json:"busy"`
	InFlight string `json:"in_flight,omitempty"`
}

func (m *Monitor) listChannels(w http.ResponseWriter, _ *http.Request) {
	pairs := m.topology.Pairs()

	rsp := make([]channelRsp, 0, len(pairs))
	for _, p := range pairs {
		c := p.Channel()
		entry := channelRsp{
			ID:   c.ID().String(),
			From: p.First().Name(),
			To:   p.Second().Name(),
			Busy: c.Busy(),
		}

		if msg, ok := c.Current(); ok {
			entry.InFlight = msg.ID().String()
		}

		rsp = append(rsp, entry)
	}

	writeJSON(w, rsp)
}

type bufferRsp struct {
	Buffer   string `json:"buffer"`
	Level    int    `json:"level"`
	Capacity int    `json:"cap"`
}

func (m *Monitor) buffers() []*queueing.Buffer[networking.Message] {
	var buffers []*queueing.Buffer[networking.Message]

	for _, n := range m.topology.Nodes() {
		buffers = append(buffers, n.Buffer(), n.ReceivedMessages())
	}

	for _, p := range m.topology.Pairs() {
		buffers = append(buffers, p.Channel().Observed())
	}

	return buffers
}

func (m *Monitor) listBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := buffersParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	levels := make([]bufferRsp, 0)
	for _, b := range m.buffers() {
		levels = append(levels, bufferRsp{
			Buffer:   b.Name(),
			Level:    b.Count(),
			Capacity: b.Capacity(),
		})
	}

	writeJSON(w, sortAndSelectBuffers(levels, sortMethod, limit, offset))
}

func buffersParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	if value < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return value, nil
}

func bufferPercent(b bufferRsp) float64 {
	return float64(b.Level) / float64(b.Capacity)
}

// sortAndSelectBuffers orders buffers by fill level or fill percentage, most
// filled first, then applies the offset and the limit. A limit of 0 selects
// all the remaining buffers.
func sortAndSelectBuffers(
	buffers []bufferRsp,
	sortMethod string,
	limit, offset int,
) []bufferRsp {
	byLevel := func(i, j int) bool {
		if buffers[i].Level != buffers[j].Level {
			return buffers[i].Level > buffers[j].Level
		}

		return bufferPercent(buffers[i]) > bufferPercent(buffers[j])
	}

	byPercent := func(i, j int) bool {
		pi, pj := bufferPercent(buffers[i]), bufferPercent(buffers[j])
		if pi != pj {
			return pi > pj
		}

		return buffers[i].Level > buffers[j].Level
	}

	if sortMethod == "level" {
		sort.SliceStable(buffers, byLevel)
	} else {
		sort.SliceStable(buffers, byPercent)
	}

	if offset > len(buffers) {
		offset = len(buffers)
	}

	buffers = buffers[offset:]

	if limit > 0 && limit < len(buffers) {
		buffers = buffers[:limit]
	}

	return buffers
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	progress := m.topology.Step()

	writeJSON(w, map[string]bool{"progress": progress})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
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
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
