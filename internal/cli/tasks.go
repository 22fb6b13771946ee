package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/publish"
	"tasksync-cli/internal/view"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List, create, update, toggle, and delete tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksToggleCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksStatsCmd(app))
	cmd.AddCommand(newTasksExportCmd(app))
	return cmd
}

type filterFlags struct {
	status   string
	category string
	priority string
	search   string
	board    string
	offline  bool
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "all", "Status filter (all|active|completed)")
	cmd.Flags().StringVar(&f.category, "category", "", "Category filter (work|personal|shopping|health|learning|other)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Priority filter (high|medium|low)")
	cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive match on title or description")
	cmd.Flags().StringVar(&f.board, "view", "all", "Dashboard view (all|today|completed|priority|analytics)")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "Read the last synced snapshot instead of calling the service")
}

func (f filterFlags) parse() (view.Filters, view.Board, error) {
	var out view.Filters
	st, err := view.ParseStatus(f.status)
	if err != nil {
		return out, "", err
	}
	out.Status = st
	if s := strings.TrimSpace(f.category); s != "" {
		c, err := model.ParseCategory(s)
		if err != nil {
			return out, "", err
		}
		out.Category = &c
	}
	if s := strings.TrimSpace(f.priority); s != "" {
		p, err := model.ParsePriority(s)
		if err != nil {
			return out, "", err
		}
		out.Priority = &p
	}
	out.Search = f.search
	b, err := view.ParseBoard(f.board)
	if err != nil {
		return out, "", err
	}
	return out, b, nil
}

type loaded struct {
	tasks    []model.Task
	offline  bool
	syncedAt time.Time
}

// loadTasks fetches the collection and refreshes the offline cache, or reads
// the cache when offline is set.
func loadTasks(ctx context.Context, rt *runtime, offline bool) (loaded, error) {
	c, err := rt.cache(ctx)
	if err != nil {
		return loaded{}, err
	}
	if offline {
		tasks, synced, err := c.LoadTasks(ctx)
		if err != nil {
			return loaded{}, err
		}
		return loaded{tasks: tasks, offline: true, syncedAt: synced}, nil
	}
	if err := rt.requireLogin(); err != nil {
		return loaded{}, err
	}
	tasks, err := rt.coordinator().Load(ctx, nil)
	if err != nil {
		return loaded{}, err
	}
	now := time.Now().UTC()
	if err := c.SaveTasks(ctx, tasks, now); err != nil {
		rt.log.Warn("cache tasks", zap.Error(err))
	}
	return loaded{tasks: tasks, syncedAt: now}, nil
}

func listMeta(l loaded, f view.Filters, b view.Board, now time.Time) map[string]any {
	meta := map[string]any{
		"view":           b,
		"counts":         view.Count(l.tasks, now),
		"active_filters": view.ActiveFilterCount(f),
		"offline":        l.offline,
	}
	if !l.syncedAt.IsZero() {
		meta["synced_at"] = l.syncedAt
	}
	return meta
}

func newTasksListCmd(app *App) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in dashboard order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, board, err := ff.parse()
			if err != nil {
				return writeErr(cmd, err)
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				l, err := loadTasks(ctxOf(cmd), rt, ff.offline)
				if err != nil {
					return err
				}
				now := time.Now()
				meta := listMeta(l, f, board, now)

				var data any
				switch board {
				case view.BoardPriority:
					data = view.ByPriority(view.Derive(l.tasks, f, now), now)
				case view.BoardAnalytics:
					data = view.Weekly(view.Derive(l.tasks, f, now), now)
					meta["insights"] = view.Insights(l.tasks, now)
				case view.BoardToday:
					today := board.Tasks(l.tasks, f, now)
					meta["today"] = view.SummarizeToday(today, now)
					data = today
				default:
					data = board.Tasks(l.tasks, f, now)
				}
				return writeOut(cmd, app, map[string]any{"data": data, "meta": meta})
			})
		},
	}
	ff.bind(cmd)
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				t, err := rt.client.GetTask(ctxOf(cmd), id)
				if err != nil {
					return err
				}
				now := time.Now()
				if markdown {
					_, err := fmt.Fprint(cmd.OutOrStdout(), publish.RenderTaskMarkdown(t, now))
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data": t,
					"meta": map[string]any{
						"overdue":      view.IsOverdue(t, now),
						"due_label":    view.DueLabel(t, now),
						"due_relative": view.DueRelative(t, now),
					},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print markdown instead of the data envelope")
	return cmd
}

type taskFields struct {
	title       string
	description string
	category    string
	priority    string
	due         string
}

func (tf *taskFields) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tf.title, "title", "", "Task title (max 200 characters)")
	cmd.Flags().StringVar(&tf.description, "description", "", "Task description (max 1000 characters)")
	cmd.Flags().StringVar(&tf.category, "category", "", "Category (work|personal|shopping|health|learning|other)")
	cmd.Flags().StringVar(&tf.priority, "priority", "", "Priority (high|medium|low; default medium on create)")
	cmd.Flags().StringVar(&tf.due, "due", "", "Due date (today|tomorrow|+Nd|YYYY-MM-DD|YYYY-MM-DD HH:MM|RFC3339)")
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var tf taskFields

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("title") {
				return writeErr(cmd, missingFlagError{flag: "title"})
			}
			d := model.TaskDraft{Title: tf.title, Description: tf.description}
			if s := strings.TrimSpace(tf.category); s != "" {
				c, err := model.ParseCategory(s)
				if err != nil {
					return writeErr(cmd, err)
				}
				d.Category = &c
			}
			if s := strings.TrimSpace(tf.priority); s != "" {
				p, err := model.ParsePriority(s)
				if err != nil {
					return writeErr(cmd, err)
				}
				d.Priority = &p
			}
			if s := strings.TrimSpace(tf.due); s != "" {
				due, err := parseDue(s, time.Now())
				if err != nil {
					return writeErr(cmd, err)
				}
				d.DueDate = &due
			}
			if err := d.Validate(); err != nil {
				return writeErr(cmd, err)
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				t, err := rt.coordinator().Create(ctxOf(cmd), d)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data":   t,
					"_hints": []string{fmt.Sprintf("tasksync tasks toggle %d", t.ID)},
				})
			})
		},
	}
	tf.bind(cmd)
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var tf taskFields
	var clearDue, clearCategory bool

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields (only the flags you pass are sent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var p model.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &tf.title
			}
			if flags.Changed("description") {
				p.Description = &tf.description
			}
			if flags.Changed("category") {
				c, err := model.ParseCategory(tf.category)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Category = &c
			}
			if flags.Changed("priority") {
				pr, err := model.ParsePriority(tf.priority)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Priority = &pr
			}
			if flags.Changed("due") {
				due, err := parseDue(tf.due, time.Now())
				if err != nil {
					return writeErr(cmd, err)
				}
				p.DueDate = &due
			}
			if clearDue {
				if p.DueDate != nil {
					return writeErr(cmd, fmt.Errorf("--due and --clear-due are mutually exclusive"))
				}
				p.ClearDueDate = true
			}
			if clearCategory {
				if p.Category != nil {
					return writeErr(cmd, fmt.Errorf("--category and --clear-category are mutually exclusive"))
				}
				p.ClearCategory = true
			}
			if err := p.Validate(); err != nil {
				return writeErr(cmd, err)
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				t, err := rt.coordinator().Update(ctxOf(cmd), id, p)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
	tf.bind(cmd)
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().BoolVar(&clearCategory, "clear-category", false, "Remove the category")
	return cmd
}

func newTasksToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip a task between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				ctx := ctxOf(cmd)
				co := rt.coordinator()
				// Toggle is optimistic against the local collection, so it must be loaded first.
				if _, err := co.Load(ctx, nil); err != nil {
					return err
				}
				t, err := co.ToggleComplete(ctx, id)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				if err := rt.coordinator().Delete(ctxOf(cmd), id); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
			})
		},
	}
}

func newTasksStatsCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Badge counts, today's summary, and insights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				l, err := loadTasks(ctxOf(cmd), rt, offline)
				if err != nil {
					return err
				}
				now := time.Now()
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{
						"counts":   view.Count(l.tasks, now),
						"today":    view.SummarizeToday(view.Today(l.tasks, now), now),
						"insights": view.Insights(l.tasks, now),
					},
					"meta": map[string]any{"offline": l.offline},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Read the last synced snapshot instead of calling the service")
	return cmd
}

func newTasksExportCmd(app *App) *cobra.Command {
	var ff filterFlags
	var out, title string
	var overwrite, descriptions bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a task view as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, board, err := ff.parse()
			if err != nil {
				return writeErr(cmd, err)
			}
			if board == view.BoardAnalytics {
				return writeErr(cmd, fmt.Errorf("the analytics view has no task list to export"))
			}
			return withRuntime(cmd, app, func(rt *runtime) error {
				l, err := loadTasks(ctxOf(cmd), rt, ff.offline)
				if err != nil {
					return err
				}
				now := time.Now()
				if strings.TrimSpace(title) == "" {
					title = board.Title()
				}
				md := publish.RenderTasksMarkdown(title, board.Tasks(l.tasks, f, now), publish.RenderOptions{Descriptions: descriptions, Now: now})
				if strings.TrimSpace(out) == "" {
					_, err := fmt.Fprint(cmd.OutOrStdout(), md)
					return err
				}
				res, err := publish.WriteMarkdown(out, md, publish.WriteOptions{Overwrite: overwrite})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": res})
			})
		},
	}
	ff.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "Document heading (default: the view name)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&descriptions, "descriptions", false, "Include task descriptions")
	return cmd
}
