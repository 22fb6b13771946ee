package main

import (
	"reflect"
	"testing"
)

func TestRewriteTaskShortcut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "no args", in: []string{"tasksync"}, want: []string{"tasksync"}},
		{name: "bare id", in: []string{"tasksync", "42"}, want: []string{"tasksync", "tasks", "show", "42"}},
		{name: "hash id", in: []string{"tasksync", "#7"}, want: []string{"tasksync", "tasks", "show", "#7"}},
		{
			name: "after value flag",
			in:   []string{"tasksync", "--api-url", "http://x:8000", "42"},
			want: []string{"tasksync", "--api-url", "http://x:8000", "tasks", "show", "42"},
		},
		{
			name: "after equals flag",
			in:   []string{"tasksync", "--format=edn", "42"},
			want: []string{"tasksync", "--format=edn", "tasks", "show", "42"},
		},
		{
			name: "after bool flag",
			in:   []string{"tasksync", "--pretty", "42"},
			want: []string{"tasksync", "--pretty", "tasks", "show", "42"},
		},
		{
			name: "after double dash",
			in:   []string{"tasksync", "--profile", "work", "--", "42"},
			want: []string{"tasksync", "--profile", "work", "--", "tasks", "show", "42"},
		},
		{
			name: "value flag value looks like an id",
			in:   []string{"tasksync", "--profile", "42", "tasks", "list"},
			want: []string{"tasksync", "--profile", "42", "tasks", "list"},
		},
		{name: "subcommand untouched", in: []string{"tasksync", "tasks", "show", "42"}, want: []string{"tasksync", "tasks", "show", "42"}},
		{name: "zero is not an id", in: []string{"tasksync", "0"}, want: []string{"tasksync", "0"}},
		{name: "unknown command untouched", in: []string{"tasksync", "wat"}, want: []string{"tasksync", "wat"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteTaskShortcut(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteTaskShortcut:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
