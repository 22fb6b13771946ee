package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskPatch_DistinguishesClearFromUnchanged(t *testing.T) {
	title := "Renamed"
	b, err := json.Marshal(TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := got["due_date"]; ok {
		t.Fatalf("expected due_date to be omitted when unchanged; got %s", string(b))
	}

	b, err = json.Marshal(TaskPatch{ClearDueDate: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got = map[string]any{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok := got["due_date"]
	if !ok || v != nil {
		t.Fatalf("expected explicit due_date null; got %s", string(b))
	}

	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b, _ = json.Marshal(TaskPatch{DueDate: &due})
	if !strings.Contains(string(b), `"due_date":"2026-03-01T09:00:00Z"`) {
		t.Fatalf("expected ISO due_date; got %s", string(b))
	}
}

func TestTaskDraft_Defaults(t *testing.T) {
	b, err := json.Marshal(TaskDraft{Title: "  Buy milk  ", Description: "   "})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	_ = json.Unmarshal(b, &got)
	if got["title"] != "Buy milk" {
		t.Fatalf("expected trimmed title; got %v", got["title"])
	}
	if got["description"] != nil {
		t.Fatalf("expected null description for blank input; got %v", got["description"])
	}
	if got["priority"] != "medium" {
		t.Fatalf("expected default medium priority; got %v", got["priority"])
	}
}

func TestValidate_TitleAndDescription(t *testing.T) {
	cases := []struct {
		name  string
		draft TaskDraft
		field string
	}{
		{"blank", TaskDraft{Title: "   "}, "title"},
		{"too long", TaskDraft{Title: strings.Repeat("x", MaxTitleLen+1)}, "title"},
		{"desc too long", TaskDraft{Title: "ok", Description: strings.Repeat("d", MaxDescriptionLen+1)}, "description"},
		{"bad category", TaskDraft{Title: "ok", Category: categoryPtr("errands")}, "category"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			ve, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError; got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q; got %q", tc.field, ve.Field)
			}
		})
	}

	if err := (TaskDraft{Title: strings.Repeat("x", MaxTitleLen)}).Validate(); err != nil {
		t.Fatalf("expected max-length title to pass; got %v", err)
	}
}

func TestCredentials_Validate(t *testing.T) {
	if err := (Credentials{Email: "nope", Password: "longenough"}).Validate(false); !IsValidationError(err) {
		t.Fatalf("expected invalid email; got %v", err)
	}
	if err := (Credentials{Email: "a@b.co", Password: "short"}).Validate(false); !IsValidationError(err) {
		t.Fatalf("expected short password error; got %v", err)
	}
	if err := (Credentials{Email: "a@b.co", Password: "longenough"}).Validate(true); !IsValidationError(err) {
		t.Fatalf("expected missing name on register; got %v", err)
	}
	if err := (Credentials{Email: "a@b.co", Password: "longenough", Name: "A"}).Validate(true); err != nil {
		t.Fatalf("expected valid registration; got %v", err)
	}
}

func TestPriorityRank_MissingIsMedium(t *testing.T) {
	var task Task
	if task.EffectivePriority() != PriorityMedium {
		t.Fatalf("expected missing priority to be medium")
	}
	if PriorityHigh.Rank() >= PriorityMedium.Rank() || PriorityMedium.Rank() >= PriorityLow.Rank() {
		t.Fatalf("expected high < medium < low")
	}
}

func categoryPtr(s string) *Category {
	c := Category(s)
	return &c
}
