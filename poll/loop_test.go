package poll

import (
	"bytes"
	"errors"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/telepanel/timing"
)

var _ = Describe("Loop", func() {
	var (
		engine *timing.SerialEngine
		buf    *bytes.Buffer
		loop   *Loop
		calls  []timing.VTimeInSec
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		buf = new(bytes.Buffer)
		loop = NewLoop("speed", engine, log.New(buf, "", 0))
		calls = nil
	})

	record := func() error {
		calls = append(calls, engine.CurrentTime())
		return nil
	}

	It("should run immediately and then every interval", func() {
		loop.Start(2, record)

		Expect(engine.RunUntil(7)).To(Succeed())

		Expect(calls).To(Equal([]timing.VTimeInSec{0, 2, 4, 6}))
		Expect(loop.Cycles()).To(Equal(uint64(4)))
		Expect(loop.Running()).To(BeTrue())
	})

	It("should keep going after errors and panics", func() {
		n := 0
		loop.Start(1, func() error {
			n++
			switch n {
			case 1:
				return errors.New("connection refused")
			case 2:
				panic("malformed payload")
			}
			return nil
		})

		Expect(engine.RunUntil(3)).To(Succeed())

		Expect(n).To(Equal(4))
		Expect(loop.Failures()).To(Equal(uint64(2)))
		Expect(buf.String()).To(ContainSubstring("connection refused"))
		Expect(buf.String()).To(ContainSubstring("malformed payload"))
	})

	It("should not run after cancel", func() {
		loop.Start(1, record)
		Expect(engine.RunUntil(1.5)).To(Succeed())

		loop.Cancel()
		loop.Cancel()
		Expect(engine.RunUntil(10)).To(Succeed())

		Expect(calls).To(Equal([]timing.VTimeInSec{0, 1}))
		Expect(loop.Running()).To(BeFalse())
	})

	It("should not run at all if cancelled before the first cycle", func() {
		loop.Start(1, record)
		loop.Cancel()

		Expect(engine.RunUntil(5)).To(Succeed())

		Expect(calls).To(BeEmpty())
	})

	It("should cancel from inside a cycle", func() {
		loop.Start(1, func() error {
			calls = append(calls, engine.CurrentTime())
			if len(calls) == 2 {
				loop.Cancel()
			}
			return nil
		})

		Expect(engine.RunUntil(10)).To(Succeed())

		Expect(calls).To(HaveLen(2))
	})

	It("should restart with a new interval", func() {
		loop.Start(1, record)
		Expect(engine.RunUntil(1.5)).To(Succeed())

		loop.Start(3, record)
		Expect(engine.RunUntil(5)).To(Succeed())

		Expect(calls).To(Equal([]timing.VTimeInSec{0, 1, 1.5, 4.5}))
	})

	It("should panic on a non-positive interval", func() {
		Expect(func() { loop.Start(0, record) }).To(Panic())
	})
})
