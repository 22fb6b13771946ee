package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tasksync-cli/internal/model"
)

func TestCache_TasksRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := OpenCache(ctx, t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	tasks, synced, err := c.LoadTasks(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks)
	require.True(t, synced.IsZero())

	high := model.PriorityHigh
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	in := []model.Task{
		{ID: 3, Title: "third", Priority: &high, DueDate: &due},
		{ID: 1, Title: "first", Completed: true},
	}
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.SaveTasks(ctx, in, at))

	got, synced, err := c.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(3), got[0].ID)
	require.Equal(t, model.PriorityHigh, *got[0].Priority)
	require.True(t, due.Equal(*got[0].DueDate))
	require.True(t, at.Equal(synced))

	// Replace-all.
	require.NoError(t, c.SaveTasks(ctx, in[1:], at))
	got, _, err = c.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCache_TranscriptSkipsLocalMessages(t *testing.T) {
	ctx := context.Background()
	c, err := OpenCache(ctx, t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	ts := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	msgs := []model.ChatMessage{
		{Role: model.RoleAssistant, Content: "welcome", Timestamp: ts, Local: true},
		{Role: model.RoleUser, Content: "hi", Timestamp: ts},
		{Role: model.RoleAssistant, Content: "hello", Timestamp: ts.Add(time.Second)},
	}
	require.NoError(t, c.SaveTranscript(ctx, "conv-1", msgs))

	got, err := c.LoadTranscript(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "hi", got[0].Content)
	require.Equal(t, model.RoleAssistant, got[1].Role)

	v, ok, err := c.Meta(ctx, "last_conversation_id")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "conv-1", v)

	require.NoError(t, c.Purge(ctx))
	got, err = c.LoadTranscript(ctx, "conv-1")
	require.NoError(t, err)
	require.Empty(t, got)
}
