package layout

import (
	"bytes"
	"log"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/telepanel/anim"
	"github.com/sarchlab/telepanel/registry"
	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
	"github.com/sarchlab/telepanel/telemetry"
	"github.com/sarchlab/telepanel/timing"
	"github.com/sarchlab/telepanel/widget"
)

var _ = Describe("Parse", func() {
	It("should load a panel file", func() {
		p, err := Load("testdata/panel.yaml")

		Expect(err).NotTo(HaveOccurred())
		Expect(p.CallFloor).To(Equal(3))
		Expect(p.Widgets).To(HaveLen(3))
		Expect(p.Widgets[0]).To(Equal(Placement{
			Kind: KindSpeedometer, Name: "gauge", X: 20, Y: 20,
		}))
		Expect(*p.Widgets[1].Min).To(Equal(-50.0))
		Expect(*p.Widgets[1].Max).To(Equal(50.0))
		Expect(p.Widgets[2].Elevator).To(Equal(2))
		Expect(p.Widgets[2].CallFloor).To(Equal(4))
	})

	It("should fail on a missing file", func() {
		_, err := Load("testdata/missing.yaml")

		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown fields", func() {
		_, err := Parse(strings.NewReader(`
widgets:
  - kind: toggle
    name: t
    colour: red
`))

		Expect(err).To(HaveOccurred())
	})

	DescribeTable("invalid panels",
		func(doc string) {
			_, err := Parse(strings.NewReader(doc))

			Expect(err).To(MatchError(ErrInvalidLayout))
		},
		Entry("unknown kind", `
widgets:
  - {kind: dial, name: d}
`),
		Entry("missing name", `
widgets:
  - {kind: toggle}
`),
		Entry("duplicate name", `
widgets:
  - {kind: toggle, name: t}
  - {kind: speedometer, name: t}
`),
		Entry("elevator without id", `
widgets:
  - {kind: elevator, name: e}
`),
		Entry("empty range", `
widgets:
  - {kind: level-indicator, name: l, min: 10, max: 10}
`),
	)

	It("should read back an encoded panel", func() {
		buf := bytes.NewBuffer(nil)
		Expect(DefaultPanel().Encode(buf)).To(Succeed())

		p, err := Parse(buf)

		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(DefaultPanel()))
	})
})

var _ = Describe("Build", func() {
	var (
		engine     *timing.SerialEngine
		canvas     *render.Canvas
		service    *telemetry.Server
		httpServer *httptest.Server
		builder    widget.Builder
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		canvas = render.NewCanvas(
			anim.NewAnimator("animator", engine, timing.FrameRate))
		logger := log.New(GinkgoWriter, "", 0)

		service = telemetry.MakeServerBuilder().WithLogger(logger).Build()
		httpServer = httptest.NewServer(service.Handler())

		builder = widget.MakeBuilder().
			WithEngine(engine).
			WithSurface(canvas).
			WithAsync(timing.NewInlineAsync(engine, 0.05)).
			WithLogger(logger).
			WithClient(remote.NewClient(httpServer.URL)).
			WithTrafficCoordinator(widget.NewTrafficCoordinator(
				engine, registry.New(), logger))
	})

	AfterEach(func() {
		httpServer.Close()
	})

	It("should build every widget of the default panel", func() {
		widgets, err := DefaultPanel().Build(builder)

		Expect(err).NotTo(HaveOccurred())
		Expect(widgets).To(HaveLen(len(DefaultPanel().Widgets)))

		for i, w := range widgets {
			Expect(w.Name()).To(Equal(DefaultPanel().Widgets[i].Name))
			Expect(w.Alive()).To(BeTrue())
		}

		for _, w := range widgets {
			w.Destroy()
			Expect(w.Alive()).To(BeFalse())
		}
	})

	It("should show the served value", func() {
		Expect(service.SetValue(12.5)).To(Succeed())

		widgets, err := Panel{Widgets: []Placement{
			{Kind: KindNumberDisplay, Name: "value"},
		}}.Build(builder)
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.RunUntil(0.1)).To(Succeed())

		display := widgets[0].(*widget.NumberDisplay)
		Expect(display.Text()).To(Equal("12.5"))

		display.Destroy()
	})

	It("should destroy what was built when a widget cannot be built", func() {
		client := remote.NewClient(httpServer.URL)
		partial := widget.MakeBuilder().
			WithEngine(engine).
			WithSurface(canvas).
			WithValueChannel(remote.NewValueChannel(client))

		widgets, err := Panel{Widgets: []Placement{
			{Kind: KindNumberDisplay, Name: "value"},
			{Kind: KindStartButton, Name: "start"},
		}}.Build(partial)

		Expect(err).To(MatchError(ContainSubstring("commander is not set")))
		Expect(widgets).To(BeNil())
		Expect(canvas.Len()).To(Equal(0))
	})
})
