package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"tracker-api/internal/api"
	"tracker-api/internal/store"
)

// optional tells an absent JSON field apart from an explicit null, so a
// PATCH body can clear nullable columns.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func requiredString(field, v string, max int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &api.ValidationError{Field: field, Message: field + " is required"}
	}
	return v, maxLength(field, v, max)
}

func maxLength(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return &api.ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

func nonNegative(field string, v int) error {
	if v < 0 {
		return &api.ValidationError{Field: field, Message: field + " must not be negative"}
	}
	return nil
}

// ownedProject checks that a referenced project belongs to the caller.
func (app *app) ownedProject(ctx context.Context, userID, id string) error {
	_, err := app.store.GetProject(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return &api.ValidationError{Field: "project", Message: "project not found"}
	}
	return err
}

// ownedTask loads a referenced task of the caller.
func (app *app) ownedTask(ctx context.Context, userID, id string) (*store.Task, error) {
	t, err := app.store.GetTask(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &api.ValidationError{Field: "task", Message: "task not found"}
	}
	return t, err
}
