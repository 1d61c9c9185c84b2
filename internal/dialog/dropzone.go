package dialog

import (
	"context"
	"sync"

	"Agent311/internal/session"
)

// DropZone tracks nested drag enter/leave pairs so the drop overlay is shown
// exactly while some drag is over the shell. Every change notifies the
// controller's listeners.
type DropZone struct {
	mu     sync.Mutex
	depth  int
	notify func()
}

func (d *DropZone) set(fn func(depth int) int) {
	d.mu.Lock()
	d.depth = fn(d.depth)
	notify := d.notify
	d.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (d *DropZone) Enter() {
	d.set(func(n int) int { return n + 1 })
}

func (d *DropZone) Leave() {
	d.set(func(n int) int {
		if n > 0 {
			return n - 1
		}
		return 0
	})
}

// Reset ends every drag, as a finished drop does.
func (d *DropZone) Reset() {
	d.set(func(int) int { return 0 })
}

func (d *DropZone) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth > 0
}

// DropZone returns the controller's drag tracker.
func (c *Controller) DropZone() *DropZone {
	return &c.drop
}

// Drop uploads the dropped files. The zone stays active until the upload
// returns.
func (c *Controller) Drop(ctx context.Context, paths []string) ([]session.ReportFile, []string, error) {
	defer c.drop.Reset()
	return c.Upload(ctx, paths)
}
