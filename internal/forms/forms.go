// Package forms implements declarative form validation as explicit pipelines:
// an ordered list of (field, rule) pairs evaluated per submission. Each rule
// returns an outcome value rather than signalling failure through control
// flow, and outcomes are collected into an aggregate result the handler can
// re-render.
package forms

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// Field names shared between handlers and templates.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldRemember        = "remember"
	FieldPicture         = "picture"
	FieldTitle           = "title"
	FieldContent         = "content"
)

// Rule validates one submitted value. It returns "" when the value passes, or
// a human-readable message when it fails. values carries the whole submission
// for cross-field rules.
type Rule func(ctx context.Context, value string, values map[string]string) string

// FieldRule binds an ordered rule list to one field.
type FieldRule struct {
	Field string
	Rules []Rule
}

// Form is an ordered set of field rules.
type Form struct {
	Fields []FieldRule
}

// Result is the outcome of validating one submission: the bound values plus
// one message per failing field.
type Result struct {
	Values map[string]string
	Errors map[string]string
}

// Valid reports whether no field failed.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

// Get returns the bound value for a field.
func (r *Result) Get(field string) string { return r.Values[field] }

// Validate runs every field's rules against the submission. The first failing
// rule per field wins; later fields are still evaluated so the user sees all
// problems at once.
func (f Form) Validate(ctx context.Context, values map[string]string) *Result {
	if values == nil {
		values = map[string]string{}
	}
	res := &Result{Values: values, Errors: map[string]string{}}
	for _, fr := range f.Fields {
		for _, rule := range fr.Rules {
			if msg := rule(ctx, values[fr.Field], values); msg != "" {
				res.Errors[fr.Field] = msg
				break
			}
		}
	}
	return res
}

// Registration validates a new account submission.
func Registration(users repository.UserRepository) Form {
	return Form{Fields: []FieldRule{
		{Field: FieldUsername, Rules: []Rule{
			Required(),
			Length(2, 20),
			UniqueUsername(users, ""),
		}},
		{Field: FieldEmail, Rules: []Rule{
			Required(),
			Email(),
			UniqueEmail(users, ""),
		}},
		{Field: FieldPassword, Rules: []Rule{
			Required(),
		}},
		{Field: FieldConfirmPassword, Rules: []Rule{
			Required(),
			EqualTo(FieldPassword, "password"),
		}},
	}}
}

// Login validates a credential submission. Existence and password checks
// happen later against the store; the form only shapes the input.
func Login() Form {
	return Form{Fields: []FieldRule{
		{Field: FieldEmail, Rules: []Rule{
			Required(),
			Email(),
		}},
		{Field: FieldPassword, Rules: []Rule{
			Required(),
		}},
	}}
}

// UpdateAccount validates a profile edit. Values the current user already
// holds are exempt from the uniqueness checks.
func UpdateAccount(users repository.UserRepository, current *models.User) Form {
	return Form{Fields: []FieldRule{
		{Field: FieldUsername, Rules: []Rule{
			Required(),
			Length(2, 20),
			UniqueUsername(users, current.Username),
		}},
		{Field: FieldEmail, Rules: []Rule{
			Required(),
			Email(),
			UniqueEmail(users, current.Email),
		}},
		{Field: FieldPicture, Rules: []Rule{
			FileAllowed("jpg", "jpeg", "png"),
		}},
	}}
}

// Post validates a post create/update submission.
func Post() Form {
	return Form{Fields: []FieldRule{
		{Field: FieldTitle, Rules: []Rule{
			Required(),
		}},
		{Field: FieldContent, Rules: []Rule{
			Required(),
		}},
	}}
}
