package cmd

import (
	"bytes"
	"database/sql"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
)

func defaultRunConfig() runConfig {
	return runConfig{
		nodes:    3,
		messages: 50,
		minSize:  1,
		maxSize:  64,
		seed:     7,
		maxSteps: 1000,
	}
}

var _ = Describe("Run", func() {
	It("should deliver every message", func() {
		report, err := runExperiment(defaultRunConfig())

		Expect(err).NotTo(HaveOccurred())
		Expect(report.steps).To(BeNumerically(">", 0))
		Expect(report.sent).To(Equal(uint64(50)))
		Expect(report.delivered).To(Equal(uint64(50)))
		Expect(report.pending).To(Equal(0))
		Expect(report.inFlight).To(Equal(0))
		Expect(report.busyTransitions).To(Equal(uint64(50)))
		Expect(report.avgLatency).To(Equal(1.0))
		Expect(report.networkBusyTime).To(BeNumerically(">", 0))
		Expect(report.networkBusyTime).To(BeNumerically("<", float64(report.steps)))
	})

	It("should stop at the step limit", func() {
		cfg := defaultRunConfig()
		cfg.nodes = 2
		cfg.messages = 10
		cfg.maxSteps = 1

		report, err := runExperiment(cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.steps).To(Equal(1))
		Expect(report.delivered).To(Equal(uint64(0)))
		Expect(report.sent).To(BeNumerically(">", 0))
		Expect(uint64(report.pending) + report.sent).To(Equal(uint64(10)))
		Expect(uint64(report.inFlight)).To(Equal(report.sent))
	})

	It("should account for every message when cut short", func() {
		cfg := defaultRunConfig()
		cfg.maxSteps = 3

		report, err := runExperiment(cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.delivered).To(BeNumerically(">", 0))
		Expect(report.inFlight).To(BeNumerically(">", 0))
		Expect(report.delivered + uint64(report.inFlight+report.pending)).
			To(Equal(uint64(cfg.messages)))
	})

	It("should accept the largest message sizes", func() {
		cfg := defaultRunConfig()
		cfg.minSize, cfg.maxSize = 0, math.MaxInt

		Expect(cfg.validate()).To(Succeed())

		report, err := runExperiment(cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.delivered).To(Equal(uint64(cfg.messages)))
	})

	It("should record events", func() {
		cfg := defaultRunConfig()
		cfg.record = filepath.Join(GinkgoT().TempDir(), "run")

		report, err := runExperiment(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.recordedDatabase).To(Equal(cfg.record + ".sqlite3"))

		db, err := sql.Open("sqlite3", report.recordedDatabase)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var delivered int
		err = db.QueryRow(
			"SELECT COUNT(*) FROM netsim_events WHERE Pos = 'Msg Delivered'",
		).Scan(&delivered)
		Expect(err).NotTo(HaveOccurred())
		Expect(delivered).To(Equal(50))
	})

	It("should print the report", func() {
		buf := new(bytes.Buffer)

		printReport(buf, runReport{runID: "r", steps: 3, sent: 2, delivered: 2})

		Expect(buf.String()).To(ContainSubstring("delivered:        2\n"))
		Expect(buf.String()).NotTo(ContainSubstring("recorded in"))
	})

	DescribeTable("invalid configurations",
		func(modify func(*runConfig)) {
			cfg := defaultRunConfig()
			modify(&cfg)

			Expect(cfg.validate()).To(HaveOccurred())
		},
		Entry("too few nodes", func(c *runConfig) { c.nodes = 1 }),
		Entry("negative messages", func(c *runConfig) { c.messages = -1 }),
		Entry("inverted sizes", func(c *runConfig) { c.minSize, c.maxSize = 9, 3 }),
		Entry("no steps", func(c *runConfig) { c.maxSteps = 0 }),
		Entry("negative capacity", func(c *runConfig) { c.receivedCapacity = -2 }),
		Entry("two recorders", func(c *runConfig) {
			c.record = "run"
			c.clickhouse = "clickhouse://localhost:9000/netsim"
		}),
	)
})

var _ = Describe("Environment defaults", func() {
	var flags *pflag.FlagSet

	BeforeEach(func() {
		flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("nodes", 4, "")
		flags.Int("max-steps", 10, "")
	})

	setEnv := func(key, value string) {
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(os.Unsetenv, key)
	}

	It("should map flag names to variable names", func() {
		Expect(envName("max-steps")).To(Equal("NETSIM_MAX_STEPS"))
	})

	It("should take defaults from the environment", func() {
		setEnv("NETSIM_MAX_STEPS", "25")

		Expect(applyEnvDefaults(flags)).To(Succeed())

		steps, _ := flags.GetInt("max-steps")
		Expect(steps).To(Equal(25))
	})

	It("should prefer flags given on the command line", func() {
		setEnv("NETSIM_NODES", "9")
		Expect(flags.Parse([]string{"--nodes=3"})).To(Succeed())

		Expect(applyEnvDefaults(flags)).To(Succeed())

		nodes, _ := flags.GetInt("nodes")
		Expect(nodes).To(Equal(3))
	})

	It("should report malformed values", func() {
		setEnv("NETSIM_NODES", "many")

		Expect(applyEnvDefaults(flags)).
			To(MatchError(ContainSubstring("NETSIM_NODES")))
	})
})
