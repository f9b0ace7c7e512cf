// Package notifiertest provides a notifier that remembers what it was told.
package notifiertest

import (
	"strings"
	"sync"
)

// Capture records every notification.
type Capture struct {
	mu       sync.Mutex
	Messages []string
}

func (c *Capture) Notify(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, text)
}

// Count returns how many messages contain substr.
func (c *Capture) Count(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.Messages {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}
