package optional_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"blast-engine/optional"
)

var _ = Describe("Optional", func() {
	It("is unset by default", func() {
		var o optional.Optional[uint32]
		Expect(o.HasValue()).To(BeFalse())
		Expect(o.Get()).To(BeZero())
	})

	It("holds a set zero value", func() {
		var o optional.Optional[uint32]
		o.Set(0)
		Expect(o.HasValue()).To(BeTrue())
		Expect(o.Get()).To(BeZero())
	})

	It("is set when built with Of", func() {
		o := optional.Of("family")
		Expect(o.HasValue()).To(BeTrue())
		Expect(o.Get()).To(Equal("family"))
	})
})
