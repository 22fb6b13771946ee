// Package mutate applies task mutations against the server and keeps the local
// collection consistent with the outcome.
package mutate

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/model"
	"tasksync-cli/internal/notify"
)

// TaskStore is the server side of the collection. *api.Client satisfies it.
type TaskStore interface {
	ListTasks(ctx context.Context, completed *bool) (model.TaskList, error)
	CreateTask(ctx context.Context, d model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error)
	ToggleComplete(ctx context.Context, id int64) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

const (
	msgCreated   = "Task created successfully!"
	msgUpdated   = "Task updated successfully!"
	msgDeleted   = "Task deleted successfully!"
	msgCompleted = "Task completed! 🎉"
	msgReopened  = "Task reopened"

	msgLoadFailed   = "Failed to load tasks"
	msgSaveFailed   = "Failed to save task"
	msgDeleteFailed = "Failed to delete task"
	msgToggleFailed = "Failed to update task status"
)

type Coordinator struct {
	store    TaskStore
	coll     *Collection
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	toggling map[int64]struct{}
	closed   bool
}

func NewCoordinator(store TaskStore, coll *Collection, n notify.Notifier, log *zap.Logger) *Coordinator {
	if coll == nil {
		coll = NewCollection(nil)
	}
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		coll:     coll,
		notifier: n,
		log:      log,
		now:      time.Now,
		toggling: map[int64]struct{}{},
	}
}

func (c *Coordinator) Collection() *Collection { return c.coll }

// Close stops results of in-flight calls from being applied.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Load replaces the collection with the server's list. completed narrows the
// request the same way the list endpoint does.
func (c *Coordinator) Load(ctx context.Context, completed *bool) ([]model.Task, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	list, err := c.store.ListTasks(ctx, completed)
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err != nil {
		c.fail("load", 0, err, msgLoadFailed)
		return nil, err
	}
	c.coll.Replace(list.Tasks)
	c.log.Debug("tasks loaded", zap.Int("count", len(list.Tasks)))
	return c.coll.Snapshot(), nil
}

func (c *Coordinator) Create(ctx context.Context, d model.TaskDraft) (model.Task, error) {
	if err := d.Validate(); err != nil {
		return model.Task{}, err
	}
	if c.isClosed() {
		return model.Task{}, ErrClosed
	}
	t, err := c.store.CreateTask(ctx, d)
	if c.isClosed() {
		return model.Task{}, ErrClosed
	}
	if err != nil {
		c.fail("create", 0, err, msgSaveFailed)
		return model.Task{}, err
	}
	c.coll.Upsert(t)
	c.log.Info("task created", zap.Int64("task_id", t.ID))
	c.notifier.Success(msgCreated)
	return t, nil
}

func (c *Coordinator) Update(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	if err := p.Validate(); err != nil {
		return model.Task{}, err
	}
	if c.isClosed() {
		return model.Task{}, ErrClosed
	}
	t, err := c.store.UpdateTask(ctx, id, p)
	if c.isClosed() {
		return model.Task{}, ErrClosed
	}
	if err != nil {
		c.fail("update", id, err, msgSaveFailed)
		return model.Task{}, err
	}
	c.coll.Update(t)
	c.log.Info("task updated", zap.Int64("task_id", id))
	c.notifier.Success(msgUpdated)
	return t, nil
}

// ToggleComplete flips completion optimistically and reconciles with the
// server's answer. A second toggle for the same task while one is pending
// returns ErrToggleInFlight without calling the server.
func (c *Coordinator) ToggleComplete(ctx context.Context, id int64) (model.Task, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return model.Task{}, ErrClosed
	}
	if _, busy := c.toggling[id]; busy {
		c.mu.Unlock()
		return model.Task{}, ErrToggleInFlight
	}
	prev, ok := c.coll.Get(id)
	if !ok {
		c.mu.Unlock()
		return model.Task{}, NotFoundError{Kind: "task", ID: id}
	}
	c.toggling[id] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.toggling, id)
		c.mu.Unlock()
	}()

	optimistic := prev
	optimistic.Completed = !prev.Completed
	if optimistic.Completed {
		at := c.now().UTC()
		optimistic.CompletedAt = &at
	} else {
		optimistic.CompletedAt = nil
	}
	c.coll.Update(optimistic)

	t, err := c.store.ToggleComplete(ctx, id)
	if c.isClosed() {
		return model.Task{}, ErrClosed
	}
	if err != nil {
		// Only completion is rolled back; edits that landed meanwhile stay.
		c.coll.Modify(id, func(t *model.Task) {
			t.Completed = prev.Completed
			t.CompletedAt = prev.CompletedAt
		})
		c.fail("toggle", id, err, msgToggleFailed)
		return model.Task{}, err
	}
	c.coll.Update(t)
	c.log.Info("task toggled", zap.Int64("task_id", id), zap.Bool("completed", t.Completed))
	if t.Completed {
		c.notifier.Success(msgCompleted)
	} else {
		c.notifier.Success(msgReopened)
	}
	return t, nil
}

// Toggling reports whether a toggle for id is waiting on the server.
func (c *Coordinator) Toggling(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.toggling[id]
	return ok
}

func (c *Coordinator) Delete(ctx context.Context, id int64) error {
	if c.isClosed() {
		return ErrClosed
	}
	err := c.store.DeleteTask(ctx, id)
	if c.isClosed() {
		return ErrClosed
	}
	if err != nil {
		c.fail("delete", id, err, msgDeleteFailed)
		return err
	}
	c.coll.Remove(id)
	c.log.Info("task deleted", zap.Int64("task_id", id))
	c.notifier.Success(msgDeleted)
	return nil
}

func (c *Coordinator) fail(op string, id int64, err error, fallback string) {
	c.log.Warn("task mutation failed", zap.String("op", op), zap.Int64("task_id", id), zap.Error(err))
	c.notifier.Error(FailureMessage(err, fallback))
}

// FailureMessage picks the text shown to the user for a failed call: the
// server's detail when it sent one, the auth message for auth failures, else
// fallback.
func FailureMessage(err error, fallback string) string {
	if errors.Is(err, api.ErrNotAuthenticated) {
		return api.LoginRequiredMessage
	}
	if errors.Is(err, api.ErrAuthExpired) {
		return err.Error()
	}
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	return fallback
}
