package value

import "strings"

// An Arr is a heap-allocated, reference-shared, mutable ordered sequence of
// Values. It is the runtime representation of the Array variant.
type Arr struct {
	elems []Value
}

// Len returns the number of elements currently in the array.
func (a *Arr) Len() int { return len(a.elems) }

// Get returns the element at index i. The caller must have bounds-checked i.
func (a *Arr) Get(i int) Value { return a.elems[i] }

// Set overwrites the element at index i. The caller must have bounds-checked
// i.
func (a *Arr) Set(i int, v Value) { a.elems[i] = v }

// Push appends v to the end of the array.
func (a *Arr) Push(v Value) { a.elems = append(a.elems, v) }

// PopLast removes and returns the last element. ok is false if the array is
// empty.
func (a *Arr) PopLast() (v Value, ok bool) {
	n := len(a.elems)
	if n == 0 {
		return Value{}, false
	}
	v = a.elems[n-1]
	a.elems = a.elems[:n-1]
	return v, true
}

func (a *Arr) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range a.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
