// Package validation holds the field rules shared by the server handlers and
// the terminal client. Every check is pure: it reports pass/fail with a
// human readable reason and never touches storage.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxPictureBytes is the largest accepted profile picture.
const MaxPictureBytes = 5 * 1024 * 1024

// Reasons reported to the user.
const (
	ReasonRequired          = "Required"
	ReasonName              = "Name must be 2-50 characters and contain only letters and spaces"
	ReasonEmail             = "Invalid email format"
	ReasonPasswordStrength  = "Must contain 1 uppercase, 1 number, min 6 chars"
	ReasonEmailRequired     = "Email is required"
	ReasonPasswordRequired  = "Password is required"
	ReasonPasswordMinLength = "Minimum 6 characters"
	ReasonNoteEmpty         = "Note cannot be empty"
	ReasonPictureRequired   = "Profile picture is required"
	ReasonPictureTooLarge   = "File is too large"
	ReasonPictureType       = "Unsupported file type"
)

var (
	// Unicode space separators count as spaces too. Every allowed character
	// is a single UTF-16 unit, so the bound agrees with browser length checks.
	nameRe  = regexp.MustCompile(`^[A-Za-z\p{Zs}\t\n\v\f\r\x{2028}\x{2029}\x{FEFF}]{2,50}$`)
	emailRe = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)
)

// Result is the outcome of a single check.
type Result struct {
	OK     bool
	Reason string
}

var pass = Result{OK: true}

func fail(reason string) Result { return Result{Reason: reason} }

// Name checks a display name.
func Name(s string) Result {
	if s == "" {
		return fail(ReasonRequired)
	}
	if !nameRe.MatchString(s) {
		return fail(ReasonName)
	}
	return pass
}

// Email checks an address against the registration pattern.
func Email(s string) Result {
	if s == "" {
		return fail(ReasonRequired)
	}
	if !emailRe.MatchString(s) {
		return fail(ReasonEmail)
	}
	return pass
}

// RegistrationPassword enforces the strength policy for new accounts:
// at least 6 characters, one uppercase letter and one digit.
func RegistrationPassword(s string) Result {
	if s == "" {
		return fail(ReasonRequired)
	}
	var upper, digit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !upper || !digit || len([]rune(s)) < 6 || strings.ContainsAny(s, "\n\r") {
		return fail(ReasonPasswordStrength)
	}
	return pass
}

// LoginPassword only checks presence and length. It stays looser than
// RegistrationPassword so accounts created under older rules can sign in.
func LoginPassword(s string) Result {
	if strings.TrimSpace(s) == "" {
		return fail(ReasonPasswordRequired)
	}
	if len([]rune(s)) < 6 || strings.ContainsAny(s, "\n\r") {
		return fail(ReasonPasswordMinLength)
	}
	return pass
}

// LoginEmail is Email with the login form's wording for a blank value.
func LoginEmail(s string) Result {
	if strings.TrimSpace(s) == "" {
		return fail(ReasonEmailRequired)
	}
	return Email(s)
}

// Note checks a single free-text note.
func Note(s string) Result {
	if strings.TrimFunc(s, unicode.IsSpace) == "" {
		return fail(ReasonNoteEmpty)
	}
	return pass
}

// FileMeta describes an uploaded file without its contents.
type FileMeta struct {
	Name        string
	Size        int64
	ContentType string
}

// Picture checks an optional profile picture. A nil meta means nothing was
// attached. It panics on a negative size, which no real upload can produce.
func Picture(meta *FileMeta) Result {
	if meta == nil {
		return fail(ReasonPictureRequired)
	}
	if meta.Size < 0 {
		panic(fmt.Sprintf("validation: negative file size %d", meta.Size))
	}
	if meta.Size > MaxPictureBytes {
		return fail(ReasonPictureTooLarge)
	}
	if !strings.HasPrefix(strings.ToLower(meta.ContentType), "image/") {
		return fail(ReasonPictureType)
	}
	return pass
}
