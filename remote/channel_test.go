package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

var _ = Describe("Channels", func() {
	var (
		server    *httptest.Server
		client    *Client
		requests  []recordedRequest
		responses map[string]string
		statuses  map[string]int
	)

	BeforeEach(func() {
		requests = nil
		responses = map[string]string{}
		statuses = map[string]int{}

		server = httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				rec := recordedRequest{method: r.Method, path: r.URL.Path}
				data, _ := io.ReadAll(r.Body)
				if len(data) > 0 {
					_ = json.Unmarshal(data, &rec.body)
				}
				requests = append(requests, rec)

				key := r.Method + " " + r.URL.Path
				if code, ok := statuses[key]; ok {
					http.Error(w, "boom", code)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				body, ok := responses[key]
				if !ok {
					body = `{"ok":true}`
				}
				_, _ = io.WriteString(w, body)
			}))

		client = NewClient(server.URL + "/")
	})

	AfterEach(func() {
		server.Close()
	})

	Context("number channels", func() {
		It("should fetch the speed", func() {
			responses["GET /api/speed"] = `{"speed": 87}`

			v, err := NewSpeedChannel(client).Fetch(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(v.Attribute).To(Equal(AttributeSpeed))
			Expect(v.Payload).To(Equal(87.0))
			Expect(v.Timestamp).NotTo(BeZero())
		})

		It("should accept numeric strings", func() {
			responses["GET /api/value"] = `{"value": "42.5"}`

			v, err := NewValueChannel(client).Fetch(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(v.Payload).To(Equal(42.5))
		})

		It("should reject a missing field", func() {
			responses["GET /api/value"] = `{"other": 1}`

			_, err := NewValueChannel(client).Fetch(context.Background())

			Expect(err).To(MatchError(ErrMalformedPayload))
			Expect(IsTransient(err)).To(BeFalse())
		})

		It("should report non-2xx as a transient error", func() {
			statuses["GET /api/value"] = http.StatusInternalServerError

			_, err := NewValueChannel(client).Fetch(context.Background())

			Expect(IsTransient(err)).To(BeTrue())
			var fe *FetchError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("should push a value", func() {
			err := NewValueChannel(client).Push(context.Background(), 12.0)

			Expect(err).NotTo(HaveOccurred())
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].method).To(Equal(http.MethodPost))
			Expect(requests[0].path).To(Equal("/api/value"))
			Expect(requests[0].body).To(HaveKeyWithValue("value", 12.0))
		})

		It("should refuse to push a non-number", func() {
			err := NewSpeedChannel(client).Push(context.Background(), true)

			Expect(err).To(HaveOccurred())
			Expect(requests).To(BeEmpty())
		})
	})

	Context("flag channels", func() {
		It("should fetch the system status", func() {
			responses["GET /api/system-status"] = `{"running": true}`

			v, err := NewSystemStatusChannel(client).
				Fetch(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(v.Attribute).To(Equal(AttributeStatus))
			b, ok := v.Bool()
			Expect(ok).To(BeTrue())
			Expect(b).To(BeTrue())
		})

		It("should push the indicator state", func() {
			err := NewStatusIndicatorChannel(client).
				Push(context.Background(), false)

			Expect(err).NotTo(HaveOccurred())
			Expect(requests[0].path).To(Equal("/api/status-indicator"))
			Expect(requests[0].body).To(HaveKeyWithValue("value", false))
		})
	})

	Context("elevators", func() {
		It("should decode the status", func() {
			responses["GET /api/elevators/1"] = `{"id":1,"currentFloor":3,` +
				`"targetFloor":null,"status":"arrived","doorsOpen":true,` +
				`"buildingFloor":3}`

			status, err := client.ElevatorStatus(context.Background(), 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(status.ID).To(Equal(1))
			Expect(status.Status).To(Equal(Arrived))
			Expect(status.TargetFloor).To(BeNil())
			Expect(status.BuildingFloor).To(Equal(IntPtr(3)))
		})

		It("should call an elevator", func() {
			err := client.CallElevator(context.Background(), 2, 4)

			Expect(err).NotTo(HaveOccurred())
			Expect(requests[0].path).To(Equal("/api/elevators/2/call"))
			Expect(requests[0].body).To(HaveKeyWithValue("floor", 4.0))
			Expect(requests[0].body).To(HaveKeyWithValue("elevatorId", 2.0))
		})
	})

	It("should fetch the history", func() {
		responses["GET /api/history"] =
			`[{"time":"2024-05-01T10:00:00Z","value":1.5}]`

		samples, err := client.History(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(samples).To(HaveLen(1))
		Expect(samples[0].Value).To(Equal(1.5))
		Expect(samples[0].Time.Equal(
			time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("should send commands", func() {
		at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		err := client.SendCommand(context.Background(),
			Command{Command: CommandStop, Time: at})

		Expect(err).NotTo(HaveOccurred())
		Expect(requests[0].path).To(Equal("/api/stop"))
		Expect(requests[0].body).To(HaveKeyWithValue("command", "stop"))
	})

	It("should reject unknown commands", func() {
		err := client.SendCommand(context.Background(),
			Command{Command: "reboot"})

		Expect(err).To(HaveOccurred())
		Expect(requests).To(BeEmpty())
	})

	It("should report unreachable services as transient", func() {
		server.Close()

		_, err := NewSpeedChannel(client).Fetch(context.Background())

		Expect(IsTransient(err)).To(BeTrue())
	})
})

var _ = Describe("Attribute", func() {
	It("should name attributes", func() {
		Expect(AttributeOnOff.String()).To(Equal("onOff"))
		Expect(Attribute(42).String()).To(Equal("Attribute(42)"))
	})
})
