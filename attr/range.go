package attr

import "strconv"

// Range is a half-open interval [Start, End). Attribute ranges are in bits
// unless a function says otherwise.
type Range struct {
	Start int
	End   int
}

// Len returns End - Start.
func (r Range) Len() int {
	return r.End - r.Start
}

// Shift moves the range by n.
func (r Range) Shift(n int) Range {
	return Range{Start: r.Start + n, End: r.End + n}
}

// Bits converts a byte range into a bit range.
func (r Range) Bits() Range {
	return Range{Start: r.Start * 8, End: r.End * 8}
}

// Bytes converts a bit range into the smallest byte range covering it.
func (r Range) Bytes() Range {
	return Range{Start: floorDiv8(r.Start), End: -floorDiv8(-r.End)}
}

func (r Range) String() string {
	return "[" + strconv.Itoa(r.Start) + "," + strconv.Itoa(r.End) + ")"
}

func floorDiv8(n int) int {
	if n >= 0 {
		return n / 8
	}
	return -((-n + 7) / 8)
}
