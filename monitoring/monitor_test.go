package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/netsim/noc/networking"
)

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		topology *networking.Topology
		a, b     *networking.Node
		pair     *networking.NodesPair
		m        *Monitor
		handler  http.Handler
	)

	BeforeEach(func() {
		topology = networking.NewTopology()
		a = networking.MakeNodeBuilder().Build("A")
		b = networking.MakeNodeBuilder().WithReceivedCapacity(4).Build("B")
		Expect(topology.AddNode(a)).To(Succeed())
		Expect(topology.AddNode(b)).To(Succeed())

		var err error
		pair, err = topology.Connect(a, b)
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor(topology)
		handler = m.Handler()
	})

	It("should list nodes", func() {
		msg, _ := networking.NewMessage(3, a, b)
		a.Buffer().Add(msg)

		rec := serve(handler, http.MethodGet, "/api/nodes")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var nodes []nodeRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &nodes)).To(Succeed())
		Expect(nodes).To(Equal([]nodeRsp{
			{ID: a.ID().String(), Name: "A", Outgoing: 1},
			{ID: b.ID().String(), Name: "B"},
		}))
	})

	It("should switch nodes off", func() {
		rec := serve(handler, http.MethodPost,
			"/api/node/"+b.ID().String()+"/unactive/true")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(b.IsUnactive()).To(BeTrue())

		rec = serve(handler, http.MethodPost,
			"/api/node/"+b.ID().String()+"/unactive/maybe")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report unknown nodes", func() {
		rec := serve(handler, http.MethodGet,
			"/api/node/"+networking.NewNode().ID().String())

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize node details", func() {
		rec := serve(handler, http.MethodGet, "/api/node/"+a.ID().String())

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should step the topology and report channels", func() {
		msg, _ := networking.NewMessage(3, a, b)
		a.Buffer().Add(msg)

		rec := serve(handler, http.MethodPost, "/api/step")
		Expect(rec.Body.String()).To(MatchJSON(`{"progress": true}`))

		rec = serve(handler, http.MethodGet, "/api/channels")
		var channels []channelRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &channels)).To(Succeed())
		Expect(channels).To(Equal([]channelRsp{{
			ID:       pair.Channel().ID().String(),
			From:     "A",
			To:       "B",
			Busy:     true,
			InFlight: msg.ID().String(),
		}}))
	})

	It("should list the fullest buffers first", func() {
		msg, _ := networking.NewMessage(3, a, b)
		pair.Channel().Add(msg)
		b.ReceivedMessages().Add(msg)

		rec := serve(handler, http.MethodGet, "/api/buffers?limit=2")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var buffers []bufferRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &buffers)).To(Succeed())
		Expect(buffers).To(Equal([]bufferRsp{
			{Buffer: "OneWayChannel.InFlight", Level: 1, Capacity: 1},
			{Buffer: "B.Received", Level: 1, Capacity: 4},
		}))
	})

	It("should reject bad buffer queries", func() {
		Expect(serve(handler, http.MethodGet, "/api/buffers?sort=name").Code).
			To(Equal(http.StatusBadRequest))
		Expect(serve(handler, http.MethodGet, "/api/buffers?limit=x").Code).
			To(Equal(http.StatusBadRequest))
		Expect(serve(handler, http.MethodGet, "/api/buffers?offset=-1").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should report progress bars", func() {
		bar := m.CreateProgressBar("Delivery", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		rec := serve(handler, http.MethodGet, "/api/progress")
		var bars []progressBarSnapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Delivery"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		rec = serve(handler, http.MethodGet, "/api/progress")
		Expect(rec.Body.String()).To(MatchJSON(`[]`))
	})

	It("should report resources", func() {
		rec := serve(handler, http.MethodGet, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})
})

var _ = Describe("sortAndSelectBuffers", func() {
	buffers := func() []bufferRsp {
		return []bufferRsp{
			{Buffer: "Half", Level: 2, Capacity: 4},
			{Buffer: "Big", Level: 5, Capacity: 100},
			{Buffer: "Full", Level: 1, Capacity: 1},
		}
	}

	It("should sort by percent", func() {
		sorted := sortAndSelectBuffers(buffers(), "percent", 0, 0)

		Expect(sorted[0].Buffer).To(Equal("Full"))
		Expect(sorted[1].Buffer).To(Equal("Half"))
		Expect(sorted[2].Buffer).To(Equal("Big"))
	})

	It("should sort by level", func() {
		sorted := sortAndSelectBuffers(buffers(), "level", 0, 0)

		Expect(sorted[0].Buffer).To(Equal("Big"))
		Expect(sorted[1].Buffer).To(Equal("Half"))
		Expect(sorted[2].Buffer).To(Equal("Full"))
	})

	It("should apply offset and limit", func() {
		Expect(sortAndSelectBuffers(buffers(), "level", 1, 1)).
			To(Equal([]bufferRsp{{Buffer: "Half", Level: 2, Capacity: 4}}))
		Expect(sortAndSelectBuffers(buffers(), "level", 0, 10)).To(BeEmpty())
	})
})

var _ = Describe("WithPortNumber", func() {
	It("should fall back to a random port for reserved ports", func() {
		Expect(NewMonitor(networking.NewTopology()).WithPortNumber(80).portNumber).
			To(Equal(0))
		Expect(NewMonitor(networking.NewTopology()).WithPortNumber(8080).portNumber).
			To(Equal(8080))
	})
})
