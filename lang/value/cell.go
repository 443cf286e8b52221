package value

// A Cell is a heap-allocated, reference-shared, mutable holder of one Value.
// It is the runtime representation of the Boxed variant: every Value with
// tag Boxed that shares the same *Cell observes the same mutations, which is
// exactly what the Box/Unbox/SetBox opcodes require (spec.md §4.1).
//
// Cells may form cycles if a SetBox stores a Boxed value that (transitively)
// contains the same cell. Neither the assembler nor this type prevents it:
// pushing the same Boxed global twice and then executing setbox stores the
// cell into itself.
type Cell struct {
	v Value
}

// Get returns the cell's current contents.
func (c *Cell) Get() Value { return c.v }

// Set overwrites the cell's contents. Every alias of c observes the update.
func (c *Cell) Set(v Value) { c.v = v }
