package widget

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/telepanel/poll"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"go.uber.org/mock/gomock"
)

var _ = Describe("EditableIndicator", func() {
	var (
		mockCtrl  *gomock.Controller
		f         *fixture
		channel   *MockChannel
		server    float64
		indicator *EditableIndicator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		f = newFixture()
		channel = NewMockChannel(mockCtrl)
		channel.EXPECT().Attribute().Return(remote.AttributeValue).AnyTimes()
		channel.EXPECT().Fetch(gomock.Any()).
			DoAndReturn(func(context.Context) (remote.TelemetryValue, error) {
				return number(server), nil
			}).
			AnyTimes()

		server = 10
		indicator = f.builder.
			WithValueChannel(channel).
			At(100, 50).
			BuildDigitalIndicator("digital")
		f.runUntil(0.1)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should show the polled value", func() {
		Expect(indicator.Value()).To(Equal(10.0))
		Expect(indicator.Text()).To(Equal("10"))
	})

	It("should open an edit session on double click", func() {
		f.canvas.Dispatch(render.PointerEvent{
			Kind: render.DoubleClick, Target: indicator.GroupHandle()})

		Expect(indicator.Editing()).To(BeTrue())
		Expect(f.canvas.Parent(indicator.TextHandle())).To(BeEmpty())
		Expect(render.Number(f.canvas, indicator.TextHandle(), "left")).
			To(Equal(100 + textOffset.X))
	})

	It("should not let a poll overwrite the text being typed", func() {
		indicator.BeginEdit()
		indicator.Type("42")

		server = 20
		f.runUntil(3.1)

		Expect(indicator.Text()).To(Equal("42"))
		Expect(indicator.Value()).To(Equal(10.0))
		Expect(indicator.Held()).To(Equal(uint64(1)))
	})

	It("should push a committed value exactly once", func() {
		channel.EXPECT().Push(gomock.Any(), 42.0).Return(nil).Times(1)

		indicator.BeginEdit()
		indicator.Type("42")
		server = 20
		f.runUntil(3.1)

		Expect(indicator.CommitEdit("42")).To(Succeed())
		f.runUntil(3.2)

		Expect(indicator.Editing()).To(BeFalse())
		Expect(indicator.Value()).To(Equal(42.0))
		Expect(indicator.Text()).To(Equal("42"))
		Expect(indicator.Pushes()).To(Equal(1))
	})

	It("should put the text back at its offset in the group", func() {
		channel.EXPECT().Push(gomock.Any(), 7.5).Return(nil)

		indicator.BeginEdit()
		f.canvas.Dispatch(render.PointerEvent{
			Kind:   render.EditingExited,
			Target: indicator.TextHandle(),
			Text:   "7.5",
		})

		Expect(f.canvas.Parent(indicator.TextHandle())).
			To(Equal(indicator.GroupHandle()))
		Expect(render.Number(f.canvas, indicator.TextHandle(), "left")).
			To(Equal(textOffset.X))
		Expect(render.Number(f.canvas, indicator.TextHandle(), "top")).
			To(Equal(textOffset.Y))
	})

	It("should keep invalid text and push nothing", func() {
		indicator.BeginEdit()

		err := indicator.CommitEdit("abc")

		Expect(poll.IsValidationError(err)).To(BeTrue())
		Expect(indicator.Editing()).To(BeFalse())
		Expect(indicator.Text()).To(Equal("abc"))
		Expect(indicator.Value()).To(Equal(10.0))
		Expect(indicator.Pushes()).To(Equal(0))
	})

	It("should restore the confirmed value on cancel", func() {
		indicator.BeginEdit()
		indicator.Type("99")
		server = 20
		f.runUntil(3.1)

		indicator.CancelEdit()

		Expect(indicator.Value()).To(Equal(20.0))
		Expect(indicator.Text()).To(Equal("20"))
	})

	It("should apply polls again after the session", func() {
		indicator.BeginEdit()
		indicator.CancelEdit()

		server = 30
		f.runUntil(3.1)

		Expect(indicator.Text()).To(Equal("30"))
	})

	It("should leave nothing on the surface when destroyed mid-edit", func() {
		indicator.BeginEdit()
		indicator.Destroy()

		Expect(f.canvas.Contains(indicator.TextHandle())).To(BeFalse())
		Expect(f.canvas.Len()).To(Equal(0))
	})
})

var _ = Describe("Speed indicator", func() {
	It("should show whole km/h", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		f := newFixture()
		channel := NewMockChannel(mockCtrl)
		channel.EXPECT().Fetch(gomock.Any()).Return(number(87.6), nil).AnyTimes()

		indicator := f.builder.WithSpeedChannel(channel).BuildSpeedIndicator("speed")
		f.runUntil(0.1)

		Expect(indicator.Kind()).To(Equal("speed-indicator"))
		Expect(indicator.Text()).To(Equal("88"))
	})
})
