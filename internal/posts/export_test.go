package posts

// Recomputes returns how many times the filtered view was rebuilt.
func (c *Controller) Recomputes() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recomputes
}

// SetScrollLocked sets the page scroll lock as another part of the page
// would.
func (c *Controller) SetScrollLocked(locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scrollLocked = locked
}
