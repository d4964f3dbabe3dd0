package widget

import (
	"context"

	"github.com/sarchlab/telepanel/remote"
	"github.com/sarchlab/telepanel/render"
)

// HistoryChart shows the recent history of the shared value. The chart
// itself is drawn by the surface from the "labels" and "values" properties.
type HistoryChart struct {
	*Base
	*Reconciler[[]remote.Sample]

	chart  render.Handle
	labels []string
	values []float64
}

func newHistoryChart(
	name string,
	env environment,
	at Point,
	source remote.HistorySource,
) *HistoryChart {
	c := &HistoryChart{Base: newBase("history-chart", name, env)}

	c.chart = c.own(env.surface.CreateShape(render.KindRect,
		render.Geometry{Left: at.X, Top: at.Y, Width: 400, Height: 200},
		render.Style{
			"stroke": "#00ff00",
			"yMin":   0.0,
			"yMax":   100.0,
			"labels": []string{},
			"values": []float64{},
		}))

	c.Reconciler = newReconciler(c.Base, Capabilities[[]remote.Sample]{
		FetchState: func(ctx context.Context) ([]remote.Sample, error) {
			return source.History(ctx)
		},
		ApplyState: func(samples []remote.Sample) bool {
			c.labels = make([]string, len(samples))
			c.values = make([]float64, len(samples))

			for i, s := range samples {
				c.labels[i] = s.Time.In(c.loc).Format("15:04:05")
				c.values[i] = s.Value
			}

			return true
		},
		RenderState: func() {
			env.surface.SetProperty(c.chart, "labels", c.labels)
			env.surface.SetProperty(c.chart, "values", c.values)
		},
	})
	c.Start(IndicatorInterval)

	return c
}

// Labels returns the time labels of the series.
func (c *HistoryChart) Labels() []string {
	return c.labels
}

// Values returns the values of the series.
func (c *HistoryChart) Values() []float64 {
	return c.values
}
