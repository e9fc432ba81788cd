package id

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type identified struct {
	Base
	payload string
}

var _ = Describe("Generator", func() {
	It("should never issue the nil ID", func() {
		g := NewGenerator()

		Expect(g.Generate().IsNil()).To(BeFalse())
		Expect(New().IsNil()).To(BeFalse())
		Expect(Nil.IsNil()).To(BeTrue())
	})

	It("should issue distinct IDs", func() {
		g := NewGenerator()
		seen := make(map[ID]bool)

		for i := 0; i < 10000; i++ {
			issued := g.Generate()
			Expect(seen).NotTo(HaveKey(issued))
			seen[issued] = true
		}
	})

	It("should print the canonical form", func() {
		Expect(New().String()).To(MatchRegexp(
			`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`))
	})

	It("should share a default generator", func() {
		Expect(Default()).To(BeIdenticalTo(Default()))
	})
})

var _ = Describe("Base", func() {
	It("should compare by ID only", func() {
		a := identified{Base: MakeBase(), payload: "a"}
		b := identified{Base: MakeBaseWithID(a.ID()), payload: "b"}
		c := identified{Base: MakeBase(), payload: "a"}

		Expect(Same(a, b)).To(BeTrue())
		Expect(Same(a, c)).To(BeFalse())
	})

	It("should keep the ID when copied", func() {
		a := identified{Base: MakeBase()}
		b := a

		Expect(b.ID()).To(Equal(a.ID()))
	})
})
