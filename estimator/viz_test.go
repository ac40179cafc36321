package estimator

import (
	"testing"

	"go.viam.com/test"
)

func TestErrorColoredPointColorNear(t *testing.T) {
	p := ErrorColoredPoint{Distance: 0}
	r, g, b := p.Color()
	test.That(t, r, test.ShouldEqual, 0.0)
	test.That(t, g, test.ShouldEqual, 1.0)
	test.That(t, b, test.ShouldEqual, 0.0)
}

func TestErrorColoredPointColorFar(t *testing.T) {
	p := ErrorColoredPoint{Distance: maxErrorDist * 10}
	r, g, b := p.Color()
	test.That(t, r, test.ShouldEqual, 1.0)
	test.That(t, g, test.ShouldEqual, 0.0)
	test.That(t, b, test.ShouldEqual, 0.0)
}

func TestErrorColoredPointColorMidpoint(t *testing.T) {
	p := ErrorColoredPoint{Distance: maxErrorDist / 2}
	r, g, _ := p.Color()
	test.That(t, r, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, g, test.ShouldAlmostEqual, 0.5, 1e-9)
}

func TestNoopVizPublisherDiscardsUpdates(t *testing.T) {
	var pub VizPublisher = NoopVizPublisher{}
	pub.Publish(VizUpdate{Kind: "node"})
}

func TestLogVizPublisherNilLoggerNoPanic(t *testing.T) {
	pub := LogVizPublisher{}
	pub.Publish(VizUpdate{Kind: "node"})
}
