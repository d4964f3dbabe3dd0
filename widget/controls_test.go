package widget

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/telepanel/poll"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Toggle", func() {
	var (
		mockCtrl *gomock.Controller
		f        *fixture
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		f = newFixture()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should slide the knob on click", func() {
		t := f.builder.BuildToggle("toggle")

		f.canvas.Dispatch(render.PointerEvent{Kind: render.MouseDown, Target: t.knob})
		Expect(t.On()).To(BeTrue())

		f.runUntil(0.3)
		Expect(t.KnobOffset()).To(Equal(knobOn))

		t.Flip()
		f.runUntil(0.6)
		Expect(t.On()).To(BeFalse())
		Expect(t.KnobOffset()).To(Equal(knobOff))
		Expect(t.Loop().Running()).To(BeFalse())
	})

	It("should push flips and follow the remote flag", func() {
		remoteOn := false
		channel := NewMockChannel(mockCtrl)
		channel.EXPECT().Fetch(gomock.Any()).
			DoAndReturn(func(context.Context) (remote.TelemetryValue, error) {
				return flag(remoteOn), nil
			}).
			AnyTimes()
		channel.EXPECT().Push(gomock.Any(), true).
			DoAndReturn(func(context.Context, any) error {
				remoteOn = true
				return nil
			})

		t := f.builder.WithIndicatorChannel(channel).BuildToggle("toggle")
		f.runUntil(0.5)

		t.Flip()
		f.runUntil(3.5)
		Expect(t.On()).To(BeTrue())
		Expect(t.Pushes()).To(Equal(1))

		remoteOn = false
		f.runUntil(6.5)
		Expect(t.On()).To(BeFalse())
	})
})

var _ = Describe("CommandButton", func() {
	var (
		mockCtrl  *gomock.Controller
		f         *fixture
		commander *MockCommander
		stamp     time.Time
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		f = newFixture()
		commander = NewMockCommander(mockCtrl)
		stamp = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
		f.builder = f.builder.
			WithCommander(commander).
			WithClock(func() time.Time { return stamp })
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should send the command with a timestamp", func() {
		commander.EXPECT().
			SendCommand(gomock.Any(), remote.Command{
				Command: remote.CommandStart,
				Time:    stamp,
			}).
			Return(nil)

		b := f.builder.BuildStartButton("start")
		f.canvas.Dispatch(render.PointerEvent{Kind: render.MouseDown, Target: b.group})
		Expect(render.Number(f.canvas, b.group, "scale")).To(BeNumerically("<", 1))

		f.runUntil(0.5)
		Expect(b.Sent()).To(Equal(1))
		Expect(render.Number(f.canvas, b.group, "scale")).To(Equal(1.0))
	})

	It("should count failed commands", func() {
		commander.EXPECT().
			SendCommand(gomock.Any(), gomock.Any()).
			Return(&remote.FetchError{Op: "POST", URL: "/api/stop", Err: errors.New("refused")})

		b := f.builder.BuildStopButton("stop")
		b.Press()
		f.runUntil(0.5)

		Expect(b.Command()).To(Equal(remote.CommandStop))
		Expect(b.Sent()).To(Equal(0))
		Expect(b.Failed()).To(Equal(1))
	})
})

var _ = Describe("NumberInput", func() {
	DescribeTable("SanitizeDigits",
		func(in, out string) {
			Expect(SanitizeDigits(in)).To(Equal(out))
		},
		Entry("digits", "123", "123"),
		Entry("mixed", "1a2.3-", "123"),
		Entry("too long", "12345678", "123456"),
		Entry("non ascii digits", "١٢3", "3"),
		Entry("empty", "", ""),
	)

	It("should push the entered value on OK", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		f := newFixture()
		channel := NewMockChannel(mockCtrl)
		channel.EXPECT().Push(gomock.Any(), 42.0).Return(nil)

		n := f.builder.WithValueChannel(channel).BuildNumberInput("input")
		f.canvas.Dispatch(render.PointerEvent{
			Kind: render.TextChanged, Target: n.text, Text: "4x2"})
		Expect(n.Value()).To(Equal("42"))

		f.canvas.Dispatch(render.PointerEvent{Kind: render.MouseDown, Target: n.ok})
		f.runUntil(0.1)

		Expect(n.Pushes()).To(Equal(1))
	})

	It("should refuse an empty value", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		f := newFixture()
		n := f.builder.
			WithValueChannel(NewMockChannel(mockCtrl)).
			BuildNumberInput("input")

		err := n.Submit()

		Expect(poll.IsValidationError(err)).To(BeTrue())
		Expect(n.Pushes()).To(Equal(0))
	})
})
