package networking

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/netsim/sim/hooking"
)

var _ = Describe("Topology", func() {
	var (
		topology *Topology
		a, b, c  *Node
	)

	BeforeEach(func() {
		topology = NewTopology()
		a = NewNode()
		b = NewNode()
		c = NewNode()

		for _, n := range []*Node{a, b, c} {
			Expect(topology.AddNode(n)).To(Succeed())
		}
	})

	It("should index nodes by ID", func() {
		found, ok := topology.Node(b.ID())
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(b))

		_, ok = topology.Node(NewNode().ID())
		Expect(ok).To(BeFalse())

		Expect(topology.Nodes()).To(HaveExactElements(
			BeIdenticalTo(a), BeIdenticalTo(b), BeIdenticalTo(c)))
	})

	It("should reject duplicated nodes", func() {
		Expect(topology.AddNode(a)).To(MatchError(ErrDuplicateNode))
		Expect(topology.AddNode(a.Clone())).To(MatchError(ErrDuplicateNode))
	})

	It("should only connect known nodes", func() {
		_, err := topology.Connect(a, NewNode())
		Expect(err).To(MatchError(ErrUnknownNode))

		pair, err := topology.Connect(a, b)
		Expect(err).NotTo(HaveOccurred())
		Expect(pair.First()).To(BeIdenticalTo(a))
		Expect(pair.Second()).To(BeIdenticalTo(b))
		Expect(pair.Channel().From()).To(BeIdenticalTo(a))
		Expect(topology.Pairs()).To(HaveExactElements(BeIdenticalTo(pair)))
	})

	Context("when stepping", func() {
		var (
			ab, bc *NodesPair
			counter *hooking.EventCounter
		)

		BeforeEach(func() {
			ab, _ = topology.Connect(a, b)
			bc, _ = topology.Connect(b, c)

			counter = hooking.NewEventCounter()
			topology.AcceptHook(counter)
		})

		It("should make no progress when idle", func() {
			Expect(topology.Step()).To(BeFalse())
		})

		It("should move a message through the channel", func() {
			m := newMsg(a, b)
			a.Buffer().Add(m)

			Expect(topology.Step()).To(BeTrue())
			Expect(a.Buffer().Count()).To(Equal(0))
			Expect(ab.Channel().Busy()).To(BeTrue())

			Expect(topology.Step()).To(BeTrue())
			Expect(ab.Channel().Busy()).To(BeFalse())
			Expect(b.ReceivedMessages().Items()).To(Equal([]Message{m}))

			Expect(topology.Step()).To(BeFalse())
			Expect(counter.Count(HookPosMsgSent)).To(Equal(uint64(1)))
			Expect(counter.Count(HookPosMsgDelivered)).To(Equal(uint64(1)))
		})

		It("should count steps and time deliveries", func() {
			latency := hooking.NewAverageTimeTracer(topology,
				HookPosMsgSent, HookPosMsgDelivered, hooking.KeyByItemID)
			topology.AcceptHook(latency)

			a.Buffer().Add(newMsg(a, b))
			a.Buffer().Add(newMsg(a, b))

			for topology.Step() {
			}

			Expect(topology.Now()).To(Equal(4.0))
			Expect(latency.TotalCount()).To(Equal(uint64(2)))
			Expect(latency.AverageTime()).To(Equal(1.0))
		})

		It("should send messages in order, one in flight at a time", func() {
			m1 := newMsg(a, b)
			m2 := newMsg(a, b)
			a.Buffer().Add(m1)
			a.Buffer().Add(m2)

			topology.Step()
			current, _ := ab.Channel().Current()
			Expect(current.Equal(m1)).To(BeTrue())

			topology.Step()
			current, _ = ab.Channel().Current()
			Expect(current.Equal(m2)).To(BeTrue())

			topology.Step()
			Expect(b.ReceivedMessages().Items()).To(Equal([]Message{m1, m2}))
		})

		It("should only send messages addressed to the other end", func() {
			toC := newMsg(a, c)
			a.Buffer().Add(toC)

			Expect(topology.Step()).To(BeFalse())
			Expect(a.Buffer().Items()).To(Equal([]Message{toC}))
			Expect(bc.Channel().Busy()).To(BeFalse())
		})

		It("should skip unactive senders", func() {
			a.Buffer().Add(newMsg(a, b))
			a.SetIsUnactive(true)

			Expect(topology.Step()).To(BeFalse())
			Expect(a.Buffer().Count()).To(Equal(1))

			a.SetIsUnactive(false)
			Expect(topology.Step()).To(BeTrue())
		})

		It("should hold messages in flight once the sender is unactive", func() {
			a.Buffer().Add(newMsg(a, b))

			Expect(topology.Step()).To(BeTrue())
			Expect(ab.Channel().Busy()).To(BeTrue())

			a.SetIsUnactive(true)
			Expect(topology.Step()).To(BeFalse())
			Expect(b.ReceivedMessages().Count()).To(Equal(0))
			Expect(ab.Channel().Busy()).To(BeTrue())

			a.SetIsUnactive(false)
			Expect(topology.Step()).To(BeTrue())
			Expect(b.ReceivedMessages().Count()).To(Equal(1))
		})

		It("should hold messages for unactive receivers", func() {
			a.Buffer().Add(newMsg(a, b))
			b.SetIsUnactive(true)

			topology.Step()
			Expect(topology.Step()).To(BeFalse())
			Expect(ab.Channel().Busy()).To(BeTrue())

			b.SetIsUnactive(false)
			Expect(topology.Step()).To(BeTrue())
			Expect(b.ReceivedMessages().Count()).To(Equal(1))
		})

		It("should deliver every message once under concurrent steps", func() {
			sent := make([]Message, 20)
			for i := range sent {
				sent[i] = newMsg(a, b)
				a.Buffer().Add(sent[i])
			}

			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						topology.Step()
					}
				}()
			}
			wg.Wait()

			Expect(b.ReceivedMessages().Items()).To(Equal(sent))
			Expect(counter.Count(HookPosMsgSent)).To(Equal(uint64(20)))
			Expect(counter.Count(HookPosMsgDelivered)).To(Equal(uint64(20)))
		})

		It("should hold messages while the received buffer is full", func() {
			small := MakeNodeBuilder().WithReceivedCapacity(1).Build("Small")
			Expect(topology.AddNode(small)).To(Succeed())
			pair, _ := topology.Connect(a, small)

			a.Buffer().Add(newMsg(a, small))
			a.Buffer().Add(newMsg(a, small))

			for i := 0; i < 5; i++ {
				topology.Step()
			}

			Expect(small.ReceivedMessages().Count()).To(Equal(1))
			Expect(pair.Channel().Busy()).To(BeTrue())
			Expect(a.Buffer().Count()).To(Equal(0))
		})
	})
})
