package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error is a single failed field check.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Reason
}

// FieldErrors maps a form field name to the reason it failed.
type FieldErrors map[string]string

// Add records reason for field unless the field already failed.
func (fe FieldErrors) Add(field string, r Result) {
	if r.OK {
		return
	}
	if _, ok := fe[field]; ok {
		return
	}
	fe[field] = r.Reason
}

// Empty reports whether every field passed.
func (fe FieldErrors) Empty() bool { return len(fe) == 0 }

// First returns the first failing field in form order.
func (fe FieldErrors) First() *Error {
	if fe.Empty() {
		return nil
	}
	keys := fe.fields()
	return &Error{Field: keys[0], Reason: fe[keys[0]]}
}

// Err returns nil when empty, otherwise fe itself as an error.
func (fe FieldErrors) Err() error {
	if fe.Empty() {
		return nil
	}
	return fe
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, k := range fe.fields() {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

var fieldOrder = map[string]int{
	"name":       0,
	"email":      1,
	"password":   2,
	"profilePic": 3,
}

// fields sorts keys the way the registration form lays them out; notes
// come last, ordered by index.
func (fe FieldErrors) fields() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	rank := func(k string) (int, int) {
		if r, ok := fieldOrder[k]; ok {
			return r, 0
		}
		var i int
		if _, err := fmt.Sscanf(k, "tasks[%d]", &i); err == nil {
			return len(fieldOrder), i
		}
		return len(fieldOrder) + 1, 0
	}
	sort.Slice(keys, func(a, b int) bool {
		ra, ia := rank(keys[a])
		rb, ib := rank(keys[b])
		if ra != rb {
			return ra < rb
		}
		if ia != ib {
			return ia < ib
		}
		return keys[a] < keys[b]
	})
	return keys
}

// NoteField names the form field of the i-th note.
func NoteField(i int) string { return fmt.Sprintf("tasks[%d]", i) }

// RegistrationInput is everything the registration form collects.
type RegistrationInput struct {
	Name     string
	Email    string
	Password string
	Notes    []string
	Picture  *FileMeta
}

// Registration runs every registration rule and collects all failures.
func Registration(in RegistrationInput) FieldErrors {
	fe := FieldErrors{}
	fe.Add("name", Name(in.Name))
	fe.Add("email", Email(in.Email))
	fe.Add("password", RegistrationPassword(in.Password))
	fe.Add("profilePic", Picture(in.Picture))
	for i, n := range in.Notes {
		fe.Add(NoteField(i), Note(n))
	}
	return fe
}

// Login runs the login form rules.
func Login(email, password string) FieldErrors {
	fe := FieldErrors{}
	fe.Add("email", LoginEmail(email))
	fe.Add("password", LoginPassword(password))
	return fe
}
