// Package anim drives time-bounded transitions of numeric visual properties
// on the frame clock of an engine.
package anim

import "math"

// An Easing maps linear progress in [0, 1] to eased progress.
type Easing func(p float64) float64

// Linear does not ease.
func Linear(p float64) float64 {
	return p
}

// EaseOutQuad decelerates to the end.
func EaseOutQuad(p float64) float64 {
	return p * (2 - p)
}

// EaseInOutCubic accelerates through the first half and decelerates through
// the second.
func EaseInOutCubic(p float64) float64 {
	if p < 0.5 {
		return 4 * p * p * p
	}

	q := 2*p - 2

	return q*q*q/2 + 1
}

// EasingByName returns a named easing. Unknown names fall back to Linear.
func EasingByName(name string) Easing {
	switch name {
	case "easeOutQuad":
		return EaseOutQuad
	case "easeInOutCubic":
		return EaseInOutCubic
	default:
		return Linear
	}
}

// Lerp interpolates between from and to with eased progress p.
func Lerp(from, to float64, easing Easing, p float64) float64 {
	p = math.Max(0, math.Min(1, p))
	if easing == nil {
		easing = Linear
	}

	return from + (to-from)*easing(p)
}
