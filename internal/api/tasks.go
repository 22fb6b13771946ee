package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tasksync-cli/internal/model"
)

// ListTasks fetches the caller's tasks. A nil completed lists everything.
func (c *Client) ListTasks(ctx context.Context, completed *bool) (model.TaskList, error) {
	q := url.Values{}
	if completed != nil {
		q.Set("completed", strconv.FormatBool(*completed))
	}
	var out model.TaskList
	err := c.do(ctx, request{op: "fetch tasks", method: http.MethodGet, path: "/api/tasks", query: q, auth: true}, &out)
	if out.Tasks == nil {
		out.Tasks = []model.Task{}
	}
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, request{op: "fetch task", method: http.MethodGet, path: taskPath(id), auth: true}, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, d model.TaskDraft) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, request{op: "create task", method: http.MethodPost, path: "/api/tasks", body: d, auth: true}, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, request{op: "update task", method: http.MethodPut, path: taskPath(id), body: p, auth: true}, &out)
	return out, err
}

func (c *Client) ToggleComplete(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, request{op: "toggle task", method: http.MethodPatch, path: taskPath(id) + "/complete", auth: true}, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, request{op: "delete task", method: http.MethodDelete, path: taskPath(id), auth: true}, nil)
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}
