// Package kernel holds the index-based mesh construction primitives shared by
// every panel and feature generator: a builder over a flat vertex list, ring
// descriptors for structural landmarks, and the immutable mesh snapshot it
// produces.
package kernel

import "fmt"

// Triangle is three vertex indices. Winding is significant: counter-clockwise
// when seen from the outside.
type Triangle [3]uint32

// Ring names a contiguous run of vertices in a builder, such as the verts of a
// circle or one corner of a bevel profile.
type Ring struct {
	Start int
	Count int
}

// At returns the vertex index of element i, wrapping modulo Count so callers
// can walk past the seam.
func (r Ring) At(i int) int {
	i %= r.Count
	if i < 0 {
		i += r.Count
	}
	return r.Start + i
}

// First is the index of element 0.
func (r Ring) First() int { return r.Start }

// Last is the index of the final element.
func (r Ring) Last() int { return r.Start + r.Count - 1 }

// End is one past the final element.
func (r Ring) End() int { return r.Start + r.Count }

// Offset returns the same ring shifted n vertices forward. Generators lay out
// copies of a ring (an extruded cap, a top ring) at fixed strides.
func (r Ring) Offset(n int) Ring {
	return Ring{Start: r.Start + n, Count: r.Count}
}

// Sub returns the ring of count elements starting at element i of r.
func (r Ring) Sub(i, count int) Ring {
	if i < 0 || count < 0 || i+count > r.Count {
		panic(fmt.Sprintf("kernel: sub-ring [%d,%d) outside ring of %d", i, i+count, r.Count))
	}
	return Ring{Start: r.Start + i, Count: count}
}

// Contains reports whether vertex index v lies in the ring.
func (r Ring) Contains(v int) bool {
	return v >= r.Start && v < r.End()
}

func (r Ring) String() string {
	return fmt.Sprintf("ring[%d+%d]", r.Start, r.Count)
}
