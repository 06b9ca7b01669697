package model

// Slide is one opaque renderable unit of markup.
type Slide string

// CloneSlides copies a slide list. A nil list stays nil, an empty list stays empty.
func CloneSlides(in []Slide) []Slide {
	if in == nil {
		return nil
	}
	out := make([]Slide, len(in))
	copy(out, in)
	return out
}

// SlidesEqual reports whether two slide lists have the same slides in the same order.
func SlidesEqual(a, b []Slide) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
