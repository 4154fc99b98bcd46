package geometry

import "testing"

func TestRectContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	if !r.Contains(Point{X: 50, Y: 50}) {
		t.Fatal("expected point inside rect to be contained")
	}
	if r.Contains(Point{X: 100, Y: 0}) {
		t.Fatal("expected right edge to be exclusive")
	}
}

func TestRectClampTo(t *testing.T) {
	bound := Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	r := Rect{X: 900, Y: 900, Width: 400, Height: 300}
	clamped := r.ClampTo(bound)
	if clamped.X+clamped.Width > bound.X+bound.Width {
		t.Fatalf("clamp did not keep rect within bound: %+v", clamped)
	}
	if clamped.Y+clamped.Height > bound.Y+bound.Height {
		t.Fatalf("clamp did not keep rect within bound: %+v", clamped)
	}
}

func TestApproximatelyEqual(t *testing.T) {
	a := Rect{X: 10, Y: 10, Width: 100, Height: 100}
	b := Rect{X: 11, Y: 9, Width: 101, Height: 99}
	if !ApproximatelyEqual(a, b, 2) {
		t.Fatal("expected rects within tolerance to be approximately equal")
	}
	if ApproximatelyEqual(a, b, 0.5) {
		t.Fatal("expected rects outside tolerance to differ")
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("Left")
	if err != nil || d != Left {
		t.Fatalf("ParseDirection(Left) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestDirectionAxis(t *testing.T) {
	if Up.Axis() != Vertical || Down.Axis() != Vertical {
		t.Fatal("up/down must be vertical axis")
	}
	if Left.Axis() != Horizontal || Right.Axis() != Horizontal {
		t.Fatal("left/right must be horizontal axis")
	}
}

func TestParseSize(t *testing.T) {
	s, err := ParseSize("50%")
	if err != nil || !s.Percent || s.Value != 50 {
		t.Fatalf("ParseSize(50%%) = %+v, %v", s, err)
	}
	if got := s.Resolve(200); got != 100 {
		t.Fatalf("Resolve(200) = %v, want 100", got)
	}

	px, err := ParseSize("640")
	if err != nil || px.Percent || px.Value != 640 {
		t.Fatalf("ParseSize(640) = %+v, %v", px, err)
	}
}
