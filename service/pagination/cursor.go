package pagination

// Cursor tracks how much of one server-ordered list has been fetched.
// HasMore derives from the last response's reported page count, and the
// loading flag enforces that a list never has two page fetches in flight:
// page N+1 is only requested after page N resolved.
type Cursor struct {
	Page       int
	TotalPages int
	loading    bool
}

// HasMore reports whether the server has pages beyond the last one
// fetched. Before any fetch both fields are zero and HasMore is false.
func (c *Cursor) HasMore() bool {
	return c.Page < c.TotalPages
}

// Loading reports whether a page fetch is in flight.
func (c *Cursor) Loading() bool {
	return c.loading
}

// Begin claims the in-flight slot. It returns false if a fetch is already
// running; the caller must treat that as a no-op, not an error.
func (c *Cursor) Begin() bool {
	if c.loading {
		return false
	}
	c.loading = true
	return true
}

// Finish releases the in-flight slot without advancing, used when the
// fetch failed and existing state stays untouched.
func (c *Cursor) Finish() {
	c.loading = false
}

// Complete records a resolved page and releases the in-flight slot.
func (c *Cursor) Complete(page, totalPages int) {
	c.Page = page
	c.TotalPages = totalPages
	c.loading = false
}

// Reset forgets all progress, for sort changes and refreshes.
func (c *Cursor) Reset() {
	*c = Cursor{}
}
