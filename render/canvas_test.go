package render

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/telepanel/timing"
)

type recordingTweener struct {
	targets  []string
	change   func(float64)
	complete func()
}

func (t *recordingTweener) Tween(
	target string,
	from, to float64,
	duration timing.VTimeInSec,
	easing func(float64) float64,
	onChange func(float64),
	onComplete func(),
) error {
	t.targets = append(t.targets, target)
	t.change = onChange
	t.complete = onComplete

	return nil
}

func (t *recordingTweener) CancelTarget(target string) bool {
	for i, tg := range t.targets {
		if tg == target {
			t.targets = append(t.targets[:i], t.targets[i+1:]...)
			return true
		}
	}

	return false
}

var _ = Describe("Canvas", func() {
	var canvas *Canvas

	BeforeEach(func() {
		canvas = NewCanvas(nil)
	})

	It("should create shapes with geometry and style", func() {
		h := canvas.CreateShape(KindRect,
			Geometry{Left: 10, Top: 20, Width: 30, Height: 40},
			Style{"fill": "#222"})

		Expect(Number(canvas, h, "left")).To(Equal(10.0))
		Expect(Number(canvas, h, "height")).To(Equal(40.0))
		Expect(String(canvas, h, "fill")).To(Equal("#222"))
		_, ok := canvas.Property(h, "radius")
		Expect(ok).To(BeFalse())
	})

	It("should group shapes relative to their top-left corner", func() {
		a := canvas.CreateShape(KindRect,
			Geometry{Left: 100, Top: 50, Width: 20, Height: 10}, nil)
		b := canvas.CreateShape(KindCircle,
			Geometry{Left: 130, Top: 40, Radius: 5}, nil)

		g := canvas.Group(a, b)

		Expect(canvas.Parent(a)).To(Equal(g))
		Expect(Number(canvas, g, "left")).To(Equal(100.0))
		Expect(Number(canvas, g, "top")).To(Equal(40.0))
		Expect(Number(canvas, a, "top")).To(Equal(10.0))
		Expect(Number(canvas, g, "width")).To(Equal(40.0))
		Expect(Number(canvas, g, "height")).To(Equal(20.0))
		Expect(canvas.ZIndex(a)).To(Equal(-1))
		Expect(canvas.ZIndex(g)).To(Equal(0))
	})

	It("should detach and reattach at the original offset", func() {
		bg := canvas.CreateShape(KindRect,
			Geometry{Left: 0, Top: 0, Width: 200, Height: 80}, nil)
		text := canvas.CreateShape(KindText,
			Geometry{Left: 90, Top: 40, Width: 30, Height: 20}, nil)
		g := canvas.Group(bg, text)
		canvas.SetProperty(g, "left", 300.0)

		canvas.Detach(text)

		Expect(canvas.Parent(text)).To(Equal(Handle("")))
		Expect(Number(canvas, text, "left")).To(Equal(390.0))
		Expect(canvas.ZIndex(text)).To(Equal(1))

		canvas.SetProperty(text, "left", 500.0)
		canvas.Attach(text, g)

		Expect(canvas.Parent(text)).To(Equal(g))
		Expect(Number(canvas, text, "left")).To(Equal(90.0))
		Expect(Number(canvas, text, "top")).To(Equal(40.0))
		Expect(Number(canvas, g, "left")).To(Equal(300.0))
		Expect(canvas.ZIndex(text)).To(Equal(-1))
	})

	It("should bubble events to the group", func() {
		a := canvas.CreateShape(KindRect, Geometry{Width: 1, Height: 1}, nil)
		g := canvas.Group(a)
		got := 0
		canvas.On(g, DoubleClick, func(PointerEvent) { got++ })

		Expect(canvas.Dispatch(PointerEvent{Kind: DoubleClick, Target: a})).
			To(BeTrue())
		Expect(canvas.Dispatch(PointerEvent{Kind: MouseDown, Target: a})).
			To(BeFalse())
		Expect(got).To(Equal(1))
	})

	It("should remove every listener of a kind on off", func() {
		a := canvas.CreateShape(KindCircle, Geometry{Radius: 1}, nil)
		canvas.On(a, MouseDown, func(PointerEvent) {})
		canvas.On(a, MouseDown, func(PointerEvent) {})
		Expect(canvas.ListenerCount(a, MouseDown)).To(Equal(2))

		canvas.Off(a, MouseDown)

		Expect(canvas.ListenerCount(a, MouseDown)).To(Equal(0))
	})

	It("should restack top-level shapes", func() {
		a := canvas.CreateShape(KindRect, Geometry{}, nil)
		b := canvas.CreateShape(KindRect, Geometry{}, nil)

		canvas.BringToFront(a)

		Expect(canvas.ZIndex(a)).To(Equal(1))
		Expect(canvas.ZIndex(b)).To(Equal(0))
	})

	It("should remove groups with their children", func() {
		a := canvas.CreateShape(KindRect, Geometry{}, nil)
		g := canvas.Group(a)
		canvas.CreateShape(KindRect, Geometry{}, nil)

		canvas.Remove(g)

		Expect(canvas.Contains(a)).To(BeFalse())
		Expect(canvas.Len()).To(Equal(1))
		canvas.SetProperty(a, "fill", "red")
	})

	It("should jump to the end without a tweener", func() {
		a := canvas.CreateShape(KindRect, Geometry{Width: 52}, nil)
		done := false

		err := canvas.Animate(a, "width", 52, 0, 0.5, nil, nil,
			func() { done = true })

		Expect(err).NotTo(HaveOccurred())
		Expect(Number(canvas, a, "width")).To(Equal(0.0))
		Expect(done).To(BeTrue())
	})

	It("should animate through the tweener", func() {
		tweener := &recordingTweener{}
		canvas = NewCanvas(tweener)
		a := canvas.CreateShape(KindLine, Geometry{}, nil)
		var seen float64

		_ = canvas.Animate(a, "angle", 0, 90, 0.8, nil,
			func(v float64) { seen = v }, nil)
		tweener.change(45)

		Expect(tweener.targets).To(Equal([]string{string(a) + ".angle"}))
		Expect(Number(canvas, a, "angle")).To(Equal(45.0))
		Expect(seen).To(Equal(45.0))
	})

	It("should stop an animation through the tweener", func() {
		tweener := &recordingTweener{}
		canvas = NewCanvas(tweener)
		a := canvas.CreateShape(KindLine, Geometry{}, nil)

		_ = canvas.Animate(a, "angle", 0, 90, 0.8, nil, nil, nil)

		Expect(canvas.StopAnimation(a, "angle")).To(BeTrue())
		Expect(tweener.targets).To(BeEmpty())
		Expect(canvas.StopAnimation(a, "angle")).To(BeFalse())
	})

	It("should have nothing to stop without a tweener", func() {
		a := canvas.CreateShape(KindLine, Geometry{}, nil)

		Expect(canvas.StopAnimation(a, "angle")).To(BeFalse())
	})

	It("should snapshot the scene", func() {
		a := canvas.CreateShape(KindRect, Geometry{}, nil)
		g := canvas.Group(a)
		canvas.On(a, MouseDown, func(PointerEvent) {})
		canvas.RequestRedraw()

		snap := canvas.Snapshot()

		Expect(snap).To(HaveLen(2))
		Expect(snap[0].ID).To(Equal(g))
		Expect(snap[1].Parent).To(Equal(g))
		Expect(snap[1].Listeners).To(HaveKeyWithValue("mousedown", 1))
		Expect(canvas.Redraws()).To(Equal(uint64(1)))
	})
})
