// Package notice holds a dismissible message that hides itself after a
// display window.
package notice

import (
	"sync"
	"time"
)

const DefaultDuration = 5 * time.Second

type Notice struct {
	mu       sync.Mutex
	duration time.Duration
	message  string
	visible  bool
	gen      uint64
	timer    *time.Timer
}

func New(duration time.Duration) *Notice {
	if duration <= 0 {
		duration = DefaultDuration
	}

	return &Notice{duration: duration}
}

// Show displays the message and restarts the display window.
func (n *Notice) Show(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.message = message
	n.visible = true
	n.gen++
	gen := n.gen

	if n.timer != nil {
		n.timer.Stop()
	}

	n.timer = time.AfterFunc(n.duration, func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if gen == n.gen {
			n.visible = false
		}
	})
}

func (n *Notice) Hide() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.hide()
}

// Current returns the message and whether it is displayed.
func (n *Notice) Current() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.message, n.visible
}

// Stop hides the notice and releases its timer.
func (n *Notice) Stop() {
	n.Hide()
}

func (n *Notice) hide() {
	n.visible = false
	n.gen++

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
