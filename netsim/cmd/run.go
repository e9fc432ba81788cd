package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/monitoring"
	"github.com/sarchlab/netsim/noc/networking"
	"github.com/sarchlab/netsim/noc/traffic"
	"github.com/sarchlab/netsim/sim/hooking"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type runConfig struct {
	nodes            int
	messages         int
	minSize          int
	maxSize          int
	seed             int64
	maxSteps         int
	receivedCapacity int
	record           string
	clickhouse       string
	monitor          bool
	monitorPort      int
	openBrowser      bool
	verbose          bool
}

type runReport struct {
	runID            string
	steps            int
	sent             uint64
	delivered        uint64
	pending          int
	inFlight         int
	busyTransitions  uint64
	avgLatency       float64
	networkBusyTime  float64
	recordedDatabase string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run generated traffic over a fully connected network.",
	Long: "`run` builds a fully connected network of nodes, queues generated " +
		"messages at their senders, and steps the network until every " +
		"message is delivered or the step limit is reached. Flags default " +
		"to NETSIM_<FLAG> environment variables, e.g. NETSIM_MAX_STEPS.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := applyEnvDefaults(cmd.Flags()); err != nil {
			return err
		}

		cfg, err := readRunConfig(cmd.Flags())
		if err != nil {
			return err
		}

		report, err := runExperiment(cfg)
		if err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), report)

		return nil
	},
}

func init() {
	flags := runCmd.Flags()
	flags.Int("nodes", 4, "Number of nodes")
	flags.Int("messages", 100, "Number of messages to generate")
	flags.Int("min-size", 1, "Minimum message size in bytes")
	flags.Int("max-size", 1500, "Maximum message size in bytes")
	flags.Int64("seed", 1, "Seed of the traffic generator")
	flags.Int("max-steps", 100000, "Maximum number of delivery steps")
	flags.Int("received-capacity", 0,
		"Capacity of the received buffers, 0 for unbounded")
	flags.String("record", "",
		"Record buffer and delivery events into <record>.sqlite3")
	flags.String("clickhouse", "",
		"Record buffer and delivery events into the ClickHouse server at this DSN")
	flags.Bool("monitor", false, "Serve the monitoring API while running")
	flags.Int("monitor-port", 0, "Port of the monitoring API, 0 for random")
	flags.Bool("open-browser", false, "Open the monitoring API in a browser")
	flags.BoolP("verbose", "v", false, "Log every delivery")

	rootCmd.AddCommand(runCmd)
}

func envName(flagName string) string {
	return "NETSIM_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// applyEnvDefaults sets every flag that was not given on the command line from
// its environment variable.
func applyEnvDefaults(flags *pflag.FlagSet) error {
	var errs []error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if err := flags.Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", envName(f.Name), err))
		}
	})

	return errors.Join(errs...)
}

func readRunConfig(flags *pflag.FlagSet) (runConfig, error) {
	var cfg runConfig

	cfg.nodes, _ = flags.GetInt("nodes")
	cfg.messages, _ = flags.GetInt("messages")
	cfg.minSize, _ = flags.GetInt("min-size")
	cfg.maxSize, _ = flags.GetInt("max-size")
	cfg.seed, _ = flags.GetInt64("seed")
	cfg.maxSteps, _ = flags.GetInt("max-steps")
	cfg.receivedCapacity, _ = flags.GetInt("received-capacity")
	cfg.record, _ = flags.GetString("record")
	cfg.clickhouse, _ = flags.GetString("clickhouse")
	cfg.monitor, _ = flags.GetBool("monitor")
	cfg.monitorPort, _ = flags.GetInt("monitor-port")
	cfg.openBrowser, _ = flags.GetBool("open-browser")
	cfg.verbose, _ = flags.GetBool("verbose")

	return cfg, cfg.validate()
}

func (c runConfig) validate() error {
	switch {
	case c.nodes < 2:
		return fmt.Errorf("at least 2 nodes are needed, got %d", c.nodes)
	case c.messages < 0:
		return fmt.Errorf("number of messages must not be negative")
	case c.minSize < 0 || c.maxSize < c.minSize:
		return fmt.Errorf("invalid size range [%d, %d]", c.minSize, c.maxSize)
	case c.maxSteps <= 0:
		return fmt.Errorf("max steps must be positive")
	case c.receivedCapacity < 0:
		return fmt.Errorf("received capacity must not be negative")
	case c.record != "" && c.clickhouse != "":
		return fmt.Errorf("--record and --clickhouse cannot be used together")
	}

	return nil
}

type experiment struct {
	cfg      runConfig
	topology *networking.Topology
	nodes    []*networking.Node
	counter  *hooking.EventCounter
	latency  *hooking.TotalAvgTimeTracer
	busyTime *hooking.BusyTimeTracer
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
}

func runExperiment(cfg runConfig) (runReport, error) {
	topology := networking.NewTopology()
	e := &experiment{
		cfg:      cfg,
		topology: topology,
		counter:  hooking.NewEventCounter(),
		latency: hooking.NewAverageTimeTracer(topology,
			networking.HookPosMsgSent, networking.HookPosMsgDelivered,
			hooking.KeyByItemID),
		busyTime: hooking.NewBusyTimeTracer(topology,
			networking.HookPosChannelBusy, networking.HookPosChannelFree,
			hooking.KeyByDomain),
	}

	report := runReport{runID: xid.New().String()}

	if err := e.buildNetwork(); err != nil {
		return report, err
	}

	if err := e.attachHooks(); err != nil {
		return report, err
	}

	if e.recorder != nil {
		defer e.recorder.Close()
	}

	if w, ok := e.recorder.(*datarecording.SQLiteWriter); ok {
		report.recordedDatabase = w.DBName()
	}

	if err := e.startMonitor(); err != nil {
		return report, err
	}

	e.generateTraffic()

	report.steps = e.deliver()
	report.sent = e.counter.Count(networking.HookPosMsgSent)
	report.delivered = e.counter.Count(networking.HookPosMsgDelivered)
	report.busyTransitions = e.counter.Count(networking.HookPosChannelBusy)
	report.avgLatency = e.latency.AverageTime()

	e.busyTime.TerminateAll()
	report.networkBusyTime = e.busyTime.BusyTime()

	for _, n := range e.nodes {
		report.pending += n.Buffer().Count()
	}

	for _, p := range e.topology.Pairs() {
		if _, ok := p.Channel().Current(); ok {
			report.inFlight++
		}
	}

	return report, nil
}

func (e *experiment) buildNetwork() error {
	builder := networking.MakeNodeBuilder()
	if e.cfg.receivedCapacity > 0 {
		builder = builder.WithReceivedCapacity(e.cfg.receivedCapacity)
	}

	nodes := traffic.NewNodeGenerator("Net", builder)

	for i := 0; i < e.cfg.nodes; i++ {
		n := nodes.Generate()
		if err := e.topology.AddNode(n); err != nil {
			return err
		}

		e.nodes = append(e.nodes, n)
	}

	for _, from := range e.nodes {
		for _, to := range e.nodes {
			if from == to {
				continue
			}

			if _, err := e.topology.Connect(from, to); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *experiment) attachHooks() error {
	e.topology.AcceptHook(e.counter)
	e.topology.AcceptHook(e.latency)

	hooks := []hooking.Hook{e.counter, e.busyTime}

	if e.cfg.verbose {
		logger := log.New(os.Stderr, "netsim: ", log.Lmicroseconds)
		e.topology.AcceptHook(hooking.NewLogHook(logger))
	}

	recorder, err := e.openRecorder()
	if err != nil {
		return err
	}

	if recorder != nil {
		eventRecorder, err := datarecording.NewEventRecorder(recorder)
		if err != nil {
			recorder.Close()
			return err
		}

		e.recorder = recorder
		e.topology.AcceptHook(eventRecorder)
		hooks = append(hooks, eventRecorder)

		for _, n := range e.nodes {
			n.Buffer().AcceptHook(eventRecorder)
			n.ReceivedMessages().AcceptHook(eventRecorder)
		}
	}

	for _, p := range e.topology.Pairs() {
		for _, h := range hooks {
			p.Channel().AcceptHook(h)
		}
	}

	return nil
}

func (e *experiment) openRecorder() (datarecording.DataRecorder, error) {
	switch {
	case e.cfg.record != "":
		return datarecording.New(e.cfg.record)
	case e.cfg.clickhouse != "":
		return datarecording.NewClickHouse(e.cfg.clickhouse)
	default:
		return nil, nil
	}
}

func (e *experiment) startMonitor() error {
	if !e.cfg.monitor {
		return nil
	}

	e.monitor = monitoring.NewMonitor(e.topology).
		WithPortNumber(e.cfg.monitorPort)

	url, err := e.monitor.StartServer()
	if err != nil {
		return err
	}

	if e.cfg.openBrowser {
		if err := browser.OpenURL(url + "/api/nodes"); err != nil {
			log.Printf("Warning: cannot open browser: %v", err)
		}
	}

	return nil
}

func (e *experiment) generateTraffic() {
	g := traffic.MakeMessageGeneratorBuilder().
		WithSeed(e.cfg.seed).
		WithSizeRange(e.cfg.minSize, e.cfg.maxSize).
		WithNodePool(e.nodes).
		Build()

	for i := 0; i < e.cfg.messages; i++ {
		m := g.Generate()
		m.Sender().Buffer().Add(m)
	}
}

func (e *experiment) deliver() int {
	var bar *monitoring.ProgressBar
	if e.monitor != nil {
		bar = e.monitor.CreateProgressBar("Delivery", uint64(e.cfg.messages))
		defer e.monitor.CompleteProgressBar(bar)
	}

	reported := uint64(0)
	steps := 0

	for steps < e.cfg.maxSteps {
		if !e.topology.Step() {
			break
		}

		steps++

		if bar != nil {
			delivered := e.counter.Count(networking.HookPosMsgDelivered)
			bar.IncrementFinished(delivered - reported)
			reported = delivered
		}
	}

	return steps
}

func printReport(w io.Writer, r runReport) {
	fmt.Fprintf(w, "run:              %s\n", r.runID)
	fmt.Fprintf(w, "steps:            %d\n", r.steps)
	fmt.Fprintf(w, "sent:             %d\n", r.sent)
	fmt.Fprintf(w, "delivered:        %d\n", r.delivered)
	fmt.Fprintf(w, "pending:          %d\n", r.pending)
	fmt.Fprintf(w, "in flight:        %d\n", r.inFlight)
	fmt.Fprintf(w, "busy transitions: %d\n", r.busyTransitions)
	fmt.Fprintf(w, "avg latency:      %.2f steps\n", r.avgLatency)
	fmt.Fprintf(w, "network busy:     %.0f steps\n", r.networkBusyTime)

	if r.recordedDatabase != "" {
		fmt.Fprintf(w, "recorded in:      %s\n", r.recordedDatabase)
	}
}
