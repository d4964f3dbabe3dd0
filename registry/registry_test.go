package registry

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedMember string

func (m *namedMember) Name() string { return string(*m) }

func newMember(name string) *namedMember {
	m := namedMember(name)
	return &m
}

var _ = Describe("Registry", func() {
	var (
		r    *Registry
		a, b *namedMember
	)

	BeforeEach(func() {
		r = New()
		a = newMember("A")
		b = newMember("B")
	})

	It("should keep members in joining order", func() {
		r.Join(a)
		r.Join(b)
		r.Join(a)

		Expect(r.Members()).To(Equal([]Member{a, b}))

		r.Leave(a)
		r.Leave(a)

		Expect(r.Members()).To(Equal([]Member{b}))
		Expect(r.Len()).To(Equal(1))
	})

	It("should allow one cycle at a time", func() {
		r.Join(a)
		r.Join(b)

		token, err := r.BeginCycle(a, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(token.Initiator).To(BeIdenticalTo(a))
		Expect(token.ID).NotTo(BeEmpty())
		Expect(r.InFlight()).To(BeIdenticalTo(token))

		_, err = r.BeginCycle(b, 2)
		Expect(err).To(MatchError(ErrCycleInFlight))

		Expect(r.EndCycle(token)).To(BeTrue())
		Expect(r.EndCycle(token)).To(BeFalse())
		Expect(r.InFlight()).To(BeNil())
		Expect(r.Cycles()).To(Equal(uint64(1)))

		_, err = r.BeginCycle(b, 3)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should serialize concurrent cycle requests", func() {
		var wg sync.WaitGroup
		var lock sync.Mutex
		won := 0

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.BeginCycle(a, 0); err == nil {
					lock.Lock()
					won++
					lock.Unlock()
				}
			}()
		}
		wg.Wait()

		Expect(won).To(Equal(1))
	})
})
