package streets

// Point is a position in the plane.
type Point struct {
	X float64
	Y float64
}

// containsBuffer pads the x-band membership test so vertices sitting
// exactly on a band boundary are not lost to floating-point noise.
const containsBuffer = 1e-9

// Rect is the axis-aligned bounding rectangle of a vertex set. The
// partitioner slices a Rect into vertical bands, so membership is
// decided on x alone; y extents are kept for reporting.
type Rect struct {
	BottomLeft Point
	TopRight   Point
	Vertices   []Vertex
}

// NewRect computes the bounding rectangle over vertices. It returns
// ErrEmptyInput if the sequence is empty.
func NewRect(vertices []Vertex) (Rect, error) {
	if len(vertices) == 0 {
		return Rect{}, ErrEmptyInput
	}

	bl := Point{X: vertices[0].X, Y: vertices[0].Y}
	tr := Point{X: vertices[0].X, Y: vertices[0].Y}
	for _, v := range vertices[1:] {
		if v.X < bl.X {
			bl.X = v.X
		}
		if v.Y < bl.Y {
			bl.Y = v.Y
		}
		if v.X > tr.X {
			tr.X = v.X
		}
		if v.Y > tr.Y {
			tr.Y = v.Y
		}
	}

	return Rect{BottomLeft: bl, TopRight: tr, Vertices: vertices}, nil
}

// Contains reports whether v falls inside the rectangle's x-band:
// bl.x − ε ≤ v.x < tr.x + ε. The y-coordinate is not consulted; the
// plane is stripped into vertical bands only.
func (r Rect) Contains(v Vertex) bool {
	return r.BottomLeft.X-containsBuffer <= v.X && v.X < r.TopRight.X+containsBuffer
}
