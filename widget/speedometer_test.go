package widget

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/telepanel/remote"
	"go.uber.org/mock/gomock"
)

var _ = DescribeTable("SpeedToAngle",
	func(speed, angle float64) {
		Expect(SpeedToAngle(speed)).To(BeNumerically("~", angle, 1e-9))
	},
	Entry("stopped", 0.0, -135.0),
	Entry("half way", 120.0, 0.0),
	Entry("full scale", 240.0, 135.0),
	Entry("above full scale", 300.0, 135.0),
	Entry("negative", -10.0, -135.0),
)

var _ = Describe("Speedometer", func() {
	var (
		mockCtrl *gomock.Controller
		f        *fixture
		channel  *MockChannel
		speed    float64
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		f = newFixture()
		channel = NewMockChannel(mockCtrl)
		channel.EXPECT().Fetch(gomock.Any()).
			DoAndReturn(func(context.Context) (remote.TelemetryValue, error) {
				return number(speed), nil
			}).
			AnyTimes()
		speed = 60
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should swing the needle to the polled speed", func() {
		m := f.builder.WithSpeedChannel(channel).BuildSpeedometer("speedometer")

		f.runUntil(1)
		Expect(m.CurrentSpeed()).To(Equal(60.0))
		Expect(m.Angle()).To(Equal(SpeedToAngle(60)))

		speed = 87
		f.runUntil(2.5)
		Expect(m.CurrentSpeed()).To(Equal(60.0))
		Expect(m.Angle()).To(BeNumerically(">", SpeedToAngle(60)))
		Expect(m.Angle()).To(BeNumerically("<", SpeedToAngle(87)))

		f.runUntil(3)
		Expect(m.Angle()).To(Equal(SpeedToAngle(87)))
		Expect(m.CurrentSpeed()).To(Equal(87.0))
		Expect(m.Swings()).To(Equal(2))
	})

	It("should ignore changes within the threshold", func() {
		m := f.builder.WithSpeedChannel(channel).BuildSpeedometer("speedometer")
		f.runUntil(1)

		speed = 60.4
		f.runUntil(4.5)

		Expect(m.Swings()).To(Equal(1))
		Expect(m.CurrentSpeed()).To(Equal(60.0))
		Expect(m.Held()).To(Equal(uint64(2)))
	})

	It("should retire the swing on Destroy", func() {
		speed = 87
		m := f.builder.WithSpeedChannel(channel).BuildSpeedometer("speedometer")
		f.runUntil(0.3)
		Expect(f.animator.Active()).To(Equal(1))

		m.Destroy()
		redraws := f.canvas.Redraws()
		f.runUntil(2)

		Expect(f.animator.Active()).To(Equal(0))
		Expect(f.canvas.Redraws()).To(Equal(redraws))
		Expect(m.CurrentSpeed()).To(Equal(0.0))
	})

	It("should not restart a swing to the same speed", func() {
		m := f.builder.WithSpeedChannel(channel).BuildSpeedometer("speedometer")
		f.runUntil(0.1)

		m.swing(60)

		Expect(m.Swings()).To(Equal(1))
		Expect(f.animator.Active()).To(Equal(1))
	})
})
