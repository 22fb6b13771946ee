package mutate

import (
	"sync"

	"tasksync-cli/internal/model"
)

// Collection is the client's copy of the user's tasks, in server order.
// It is safe for concurrent use; readers get copies.
type Collection struct {
	mu      sync.RWMutex
	tasks   []model.Task
	version uint64
}

func NewCollection(tasks []model.Task) *Collection {
	c := &Collection{}
	c.Replace(tasks)
	return c
}

func (c *Collection) Snapshot() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}

// Version increases on every change. Views use it to know when to re-derive.
func (c *Collection) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Collection) Replace(tasks []model.Task) {
	next := make([]model.Task, len(tasks))
	copy(next, tasks)
	c.mu.Lock()
	c.tasks = next
	c.version++
	c.mu.Unlock()
}

func (c *Collection) Get(id int64) (model.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.tasks[i], true
	}
	return model.Task{}, false
}

// Upsert replaces the task with the same id, or prepends it.
func (c *Collection) Upsert(t model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(t.ID); i >= 0 {
		c.tasks[i] = t
	} else {
		c.tasks = append([]model.Task{t}, c.tasks...)
	}
	c.version++
}

// Update replaces the task with the same id. It reports false (and changes
// nothing) when the id is not present.
func (c *Collection) Update(t model.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(t.ID)
	if i < 0 {
		return false
	}
	c.tasks[i] = t
	c.version++
	return true
}

// Modify applies fn to the stored task with id in place.
func (c *Collection) Modify(id int64, fn func(*model.Task)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	fn(&c.tasks[i])
	c.version++
	return true
}

func (c *Collection) Remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
	c.version++
	return true
}

func (c *Collection) indexLocked(id int64) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
