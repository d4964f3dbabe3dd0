package telemetry

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/telepanel/remote"
)

var _ = Describe("Building", func() {
	var (
		clock    *fakeClock
		building *Building
	)

	BeforeEach(func() {
		clock = newFakeClock()
		building = NewBuilding(2, 5, 2*time.Second, 3*time.Second, clock.Now)
	})

	It("should start with every elevator idle on the first floor", func() {
		Expect(building.Elevators()).To(Equal([]int{1, 2}))
		Expect(building.Floors()).To(Equal(5))

		status, err := building.Status(2)

		Expect(err).NotTo(HaveOccurred())
		Expect(status.ID).To(Equal(2))
		Expect(status.CurrentFloor).To(Equal(1))
		Expect(status.Status).To(Equal(remote.Idle))
		Expect(status.TargetFloor).To(BeNil())
		Expect(status.DoorsOpen).To(BeFalse())
		Expect(*status.BuildingFloor).To(Equal(1))
	})

	It("should reject unknown elevators", func() {
		_, err := building.Status(3)
		Expect(err).To(MatchError(ErrUnknownElevator))

		Expect(building.Call(0, 2)).To(MatchError(ErrUnknownElevator))
	})

	It("should reject floors outside the building", func() {
		Expect(building.Call(1, 0)).To(MatchError(ErrInvalidFloor))
		Expect(building.Call(1, 6)).To(MatchError(ErrInvalidFloor))
	})

	It("should move, arrive, and settle", func() {
		Expect(building.Call(1, 4)).To(Succeed())

		clock.Advance(3 * time.Second)
		status, _ := building.Status(1)
		Expect(status.Status).To(Equal(remote.Moving))
		Expect(status.CurrentFloor).To(Equal(2))
		Expect(*status.TargetFloor).To(Equal(4))
		Expect(status.DoorsOpen).To(BeFalse())
		Expect(*status.BuildingFloor).To(Equal(1))

		clock.Advance(3 * time.Second)
		status, _ = building.Status(1)
		Expect(status.Status).To(Equal(remote.Arrived))
		Expect(status.CurrentFloor).To(Equal(4))
		Expect(status.DoorsOpen).To(BeTrue())
		Expect(*status.BuildingFloor).To(Equal(4))

		clock.Advance(3 * time.Second)
		status, _ = building.Status(1)
		Expect(status.Status).To(Equal(remote.Idle))
		Expect(status.CurrentFloor).To(Equal(4))
		Expect(status.TargetFloor).To(BeNil())
		Expect(*status.BuildingFloor).To(Equal(4))
	})

	It("should move down", func() {
		Expect(building.Call(1, 5)).To(Succeed())
		clock.Advance(20 * time.Second)

		Expect(building.Call(1, 2)).To(Succeed())
		clock.Advance(2 * time.Second)

		status, _ := building.Status(1)
		Expect(status.Status).To(Equal(remote.Moving))
		Expect(status.CurrentFloor).To(Equal(4))
	})

	It("should refuse calls while moving", func() {
		Expect(building.Call(1, 3)).To(Succeed())
		clock.Advance(time.Second)

		Expect(building.Call(1, 5)).To(MatchError(ErrBusy))
		Expect(building.Call(2, 5)).To(Succeed())
	})

	It("should accept a call while the doors are open", func() {
		Expect(building.Call(1, 2)).To(Succeed())
		clock.Advance(3 * time.Second)

		Expect(building.Call(1, 3)).To(Succeed())

		status, _ := building.Status(1)
		Expect(status.Status).To(Equal(remote.Moving))
		Expect(status.CurrentFloor).To(Equal(2))
	})

	It("should arrive at once when called to its own floor", func() {
		Expect(building.Call(1, 1)).To(Succeed())

		status, _ := building.Status(1)
		Expect(status.Status).To(Equal(remote.Arrived))
		Expect(status.DoorsOpen).To(BeTrue())
	})

	It("should report the floor of the latest arrival", func() {
		Expect(building.Call(1, 3)).To(Succeed())
		clock.Advance(time.Second)
		Expect(building.Call(2, 2)).To(Succeed())

		clock.Advance(2 * time.Second)
		status, _ := building.Status(1)
		Expect(*status.BuildingFloor).To(Equal(2))

		clock.Advance(time.Second)
		status, _ = building.Status(2)
		Expect(*status.BuildingFloor).To(Equal(3))
	})

	It("should panic on an empty building", func() {
		Expect(func() {
			NewBuilding(0, 5, time.Second, time.Second, nil)
		}).To(Panic())
	})
})
