package model

import (
	"encoding/json"
	"strings"
	"time"
)

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
	CategoryOther    Category = "other"
)

// Categories is the closed set offered by the client, in display order.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryShopping,
	CategoryHealth,
	CategoryLearning,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, x := range Categories {
		if x == c {
			return true
		}
	}
	return false
}

func (c Category) Label() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank orders priorities by severity: high=0, medium=1, low=2.
// Unknown or empty priorities rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

func (p Priority) Label() string {
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Category    *Category  `json:"category"`
	Priority    *Priority  `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Order       int        `json:"order"`
}

func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// EffectivePriority returns the task priority, treating a missing value as medium.
func (t Task) EffectivePriority() Priority {
	if t.Priority == nil || !t.Priority.Valid() {
		return PriorityMedium
	}
	return *t.Priority
}

func (t Task) HasCategory(c Category) bool {
	return t.Category != nil && *t.Category == c
}

type TaskList struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
}

// TaskDraft is the payload for creating a task.
type TaskDraft struct {
	Title       string
	Description string
	Category    *Category
	Priority    *Priority
	DueDate     *time.Time
}

func (d TaskDraft) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"title":       strings.TrimSpace(d.Title),
		"description": nil,
		"category":    nil,
		"priority":    string(PriorityMedium),
		"due_date":    nil,
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		out["description"] = desc
	}
	if d.Category != nil && *d.Category != "" {
		out["category"] = string(*d.Category)
	}
	if d.Priority != nil && *d.Priority != "" {
		out["priority"] = string(*d.Priority)
	}
	if d.DueDate != nil {
		out["due_date"] = d.DueDate.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// TaskPatch is a partial update. Nil fields are left unchanged on the server.
//
// DueDate and ClearDueDate are distinct: ClearDueDate sends an explicit null,
// which clears the field, whereas a nil DueDate omits the key entirely.
// ClearCategory behaves the same way for category.
type TaskPatch struct {
	Title         *string
	Description   *string
	Completed     *bool
	Category      *Category
	ClearCategory bool
	Priority      *Priority
	DueDate       *time.Time
	ClearDueDate  bool
	Order         *int
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Category == nil && !p.ClearCategory && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Order == nil
}

func (p TaskPatch) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if p.Title != nil {
		out["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Completed != nil {
		out["completed"] = *p.Completed
	}
	switch {
	case p.ClearCategory:
		out["category"] = nil
	case p.Category != nil:
		out["category"] = string(*p.Category)
	}
	if p.Priority != nil {
		out["priority"] = string(*p.Priority)
	}
	switch {
	case p.ClearDueDate:
		out["due_date"] = nil
	case p.DueDate != nil:
		out["due_date"] = p.DueDate.UTC().Format(time.RFC3339)
	}
	if p.Order != nil {
		out["order"] = *p.Order
	}
	return json.Marshal(out)
}

type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ChatMessage struct {
	ID        string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Local marks client-seeded messages that were never sent to the server.
	Local bool `json:"-"`
}

type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

type ChatResponse struct {
	Response       string    `json:"response"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
	TokensUsed     int       `json:"tokens_used,omitempty"`
}

type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}
