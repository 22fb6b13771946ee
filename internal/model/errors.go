package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
	MinPasswordLen    = 8
)

// ValidationError is a local, user-fixable input error. It is raised before any
// network call and is meant to be shown next to the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError{Field: "title", Message: "Title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return ValidationError{Field: "title", Message: fmt.Sprintf("Title must not exceed %d characters", MaxTitleLen)}
	}
	return nil
}

func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return ValidationError{Field: "description", Message: fmt.Sprintf("Description must not exceed %d characters", MaxDescriptionLen)}
	}
	return nil
}

func validateEnums(c *Category, p *Priority) error {
	if c != nil && *c != "" && !c.Valid() {
		return ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", string(*c))}
	}
	if p != nil && *p != "" && !p.Valid() {
		return ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", string(*p))}
	}
	return nil
}

func (d TaskDraft) Validate() error {
	if err := ValidateTitle(d.Title); err != nil {
		return err
	}
	if err := ValidateDescription(d.Description); err != nil {
		return err
	}
	return validateEnums(d.Category, d.Priority)
}

func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ValidationError{Message: "nothing to update"}
	}
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := ValidateDescription(*p.Description); err != nil {
			return err
		}
	}
	return validateEnums(p.Category, p.Priority)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Validate checks login (register=false) or registration input.
func (c Credentials) Validate(register bool) error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return ValidationError{Field: "email", Message: "Email is required"}
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if c.Password == "" {
		return ValidationError{Field: "password", Message: "Password is required"}
	}
	if len(c.Password) < MinPasswordLen {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLen)}
	}
	if register && strings.TrimSpace(c.Name) == "" {
		return ValidationError{Field: "name", Message: "Full name is required"}
	}
	return nil
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q (expected one of work|personal|shopping|health|learning|other)", s)}
	}
	return c, nil
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q (expected high|medium|low)", s)}
	}
	return p, nil
}
