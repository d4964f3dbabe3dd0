package telemetry

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/telepanel/datarecording"
	"github.com/sarchlab/telepanel/remote"
)

func statusCode(err error) int {
	var fe *remote.FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}

	return 0
}

var _ = Describe("Server", func() {
	var (
		ctx        context.Context
		clock      *fakeClock
		builder    ServerBuilder
		server     *Server
		httpServer *httptest.Server
		client     *remote.Client
	)

	start := func() {
		server = builder.Build()
		httpServer = httptest.NewServer(server.Handler())
		client = remote.NewClient(httpServer.URL)
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = newFakeClock()
		builder = MakeServerBuilder().
			WithClock(clock.Now).
			WithLogger(log.New(GinkgoWriter, "", 0))
	})

	AfterEach(func() {
		httpServer.Close()
	})

	Context("without a store", func() {
		BeforeEach(start)

		It("should read back the pushed value", func() {
			channel := remote.NewValueChannel(client)

			Expect(channel.Push(ctx, 42.5)).To(Succeed())

			v, err := channel.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Payload).To(Equal(42.5))
		})

		It("should read back the pushed speed", func() {
			channel := remote.NewSpeedChannel(client)

			Expect(channel.Push(ctx, 87)).To(Succeed())

			v, err := channel.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Payload).To(Equal(87.0))
		})

		It("should keep the latest samples", func() {
			channel := remote.NewValueChannel(client)
			for i := 1; i <= 25; i++ {
				clock.Advance(time.Second)
				Expect(channel.Push(ctx, float64(i))).To(Succeed())
			}

			samples, err := client.History(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(samples).To(HaveLen(HistoryLength))
			Expect(samples[0].Value).To(Equal(6.0))
			Expect(samples[19].Value).To(Equal(25.0))
			Expect(samples[19].Time.Equal(clock.Now())).To(BeTrue())
		})

		It("should reject a value that is not a number", func() {
			resp, err := http.Post(httpServer.URL+"/api/value",
				"application/json", strings.NewReader(`{"value":true}`))

			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should start and stop the system", func() {
			status := remote.NewSystemStatusChannel(client)
			indicator := remote.NewStatusIndicatorChannel(client)

			v, err := status.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Payload).To(BeFalse())

			Expect(client.SendCommand(ctx, remote.Command{
				Command: remote.CommandStart,
				Time:    clock.Now(),
			})).To(Succeed())

			v, _ = status.Fetch(ctx)
			Expect(v.Payload).To(BeTrue())
			v, _ = indicator.Fetch(ctx)
			Expect(v.Payload).To(BeTrue())
			Expect(server.Running()).To(BeTrue())

			Expect(client.SendCommand(ctx, remote.Command{
				Command: remote.CommandStop,
			})).To(Succeed())

			v, _ = status.Fetch(ctx)
			Expect(v.Payload).To(BeFalse())
			v, _ = indicator.Fetch(ctx)
			Expect(v.Payload).To(BeFalse())
		})

		It("should refuse a command posted to the wrong path", func() {
			resp, err := http.Post(httpServer.URL+"/api/start",
				"application/json", strings.NewReader(`{"command":"stop"}`))

			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(server.Running()).To(BeFalse())
		})

		It("should toggle the status indicator alone", func() {
			indicator := remote.NewStatusIndicatorChannel(client)

			Expect(indicator.Push(ctx, true)).To(Succeed())

			v, err := indicator.Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Payload).To(BeTrue())
			Expect(server.Running()).To(BeFalse())
		})

		It("should serve elevator status", func() {
			status, err := client.ElevatorStatus(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(status.ID).To(Equal(1))
			Expect(status.Status).To(Equal(remote.Idle))
			Expect(*status.BuildingFloor).To(Equal(1))
		})

		It("should answer 404 for an unknown elevator", func() {
			_, err := client.ElevatorStatus(ctx, 9)

			Expect(statusCode(err)).To(Equal(http.StatusNotFound))
			Expect(remote.IsTransient(err)).To(BeTrue())
		})

		It("should move a called elevator", func() {
			Expect(client.CallElevator(ctx, 2, 3)).To(Succeed())

			clock.Advance(2 * time.Second)
			status, err := client.ElevatorStatus(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal(remote.Moving))
			Expect(*status.TargetFloor).To(Equal(3))

			clock.Advance(2 * time.Second)
			status, _ = client.ElevatorStatus(ctx, 2)
			Expect(status.Status).To(Equal(remote.Arrived))
			Expect(status.DoorsOpen).To(BeTrue())
			Expect(*status.BuildingFloor).To(Equal(3))
		})

		It("should map call errors to status codes", func() {
			err := client.CallElevator(ctx, 1, 9)
			Expect(statusCode(err)).To(Equal(http.StatusBadRequest))

			Expect(client.CallElevator(ctx, 1, 4)).To(Succeed())
			clock.Advance(time.Second)

			err = client.CallElevator(ctx, 1, 2)
			Expect(statusCode(err)).To(Equal(http.StatusConflict))

			err = client.CallElevator(ctx, 7, 2)
			Expect(statusCode(err)).To(Equal(http.StatusNotFound))
		})

		It("should list the elevators", func() {
			resp, err := http.Get(httpServer.URL + "/api/elevators")

			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).
				To(Equal("application/json"))
		})
	})

	Context("with a store", func() {
		var store *datarecording.Store

		BeforeEach(func() {
			path := filepath.Join(GinkgoT().TempDir(), "telemetry")
			writer := datarecording.New(path)
			DeferCleanup(writer.Close)

			store = datarecording.NewStore(writer)
			builder = builder.WithStore(store)
			start()
		})

		It("should serve the history from the store", func() {
			channel := remote.NewValueChannel(client)
			for i := 1; i <= 25; i++ {
				clock.Advance(time.Second)
				Expect(channel.Push(ctx, float64(i))).To(Succeed())
			}

			samples, err := client.History(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(samples).To(HaveLen(HistoryLength))
			Expect(samples[0].Value).To(Equal(6.0))
			Expect(samples[19].Value).To(Equal(25.0))
			Expect(samples[19].Time.UnixMilli()).
				To(Equal(clock.Now().UnixMilli()))
		})

		It("should log commands", func() {
			Expect(client.SendCommand(ctx, remote.Command{
				Command: remote.CommandStart,
				Time:    clock.Now(),
			})).To(Succeed())
			Expect(client.SendCommand(ctx, remote.Command{
				Command: remote.CommandStop,
				Time:    clock.Now(),
			})).To(Succeed())

			commands, err := store.Commands(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(commands).To(HaveLen(2))
			Expect(commands[0].Command).To(Equal("start"))
			Expect(commands[1].Command).To(Equal("stop"))
		})

		It("should log accepted calls only", func() {
			Expect(client.CallElevator(ctx, 1, 3)).To(Succeed())
			Expect(client.CallElevator(ctx, 1, 9)).NotTo(Succeed())

			calls, err := store.Calls(ctx, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal([]datarecording.CallEntry{{
				Time:       clock.Now().UnixMilli(),
				ElevatorID: 1,
				Floor:      3,
			}}))
		})
	})
})
