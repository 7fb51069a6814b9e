package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/client"
)

func stubAPI(t *testing.T) *httptest.Server {
	t.Helper()
	profile := map[string]any{
		"name": "Ada Lovelace", "email": "ada@example.com",
		"profilePic": "/profilePics/ada.png", "tasks": []string{"first", "second"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "note", r.PostFormValue("tasks[0]"))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "msg": "Registration successful"})
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if r.PostFormValue("password") != "Secret1" {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "failure", "msg": "Invalid Password"})
			return
		}
		data := map[string]any{"authToken": "tok-1"}
		for k, v := range profile {
			data[k] = v
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data})
	})
	mux.HandleFunc("POST /validateToken", func(w http.ResponseWriter, r *http.Request) {
		if r.PostFormValue("authToken") != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "failure", "msg": "Invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": profile})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newApp(t *testing.T, stdin string) (*app, *bytes.Buffer) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = orig })

	out := &bytes.Buffer{}
	return &app{
		api:   client.New(stubAPI(t).URL),
		store: client.FileSessionStore{Path: filepath.Join(t.TempDir(), "session.json")},
		in:    bufio.NewReader(strings.NewReader(stdin)),
		out:   out,
	}, out
}

func TestLoginDashboardLogout(t *testing.T) {
	a, out := newApp(t, "Secret1\n")
	ctx := context.Background()

	require.NoError(t, a.login(ctx, []string{"-email", "ada@example.com"}))
	assert.Contains(t, out.String(), "Signed in as Ada Lovelace")

	out.Reset()
	require.NoError(t, a.dashboard(ctx))
	assert.Contains(t, out.String(), "Email:   ada@example.com")
	assert.Contains(t, out.String(), "  2. second")

	require.NoError(t, a.logout())
	err := a.dashboard(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestLogin_WrongPassword(t *testing.T) {
	a, _ := newApp(t, "Wrong12")
	err := a.login(context.Background(), []string{"-email", "ada@example.com"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid Password", apiErr.Msg)
}

func TestRegister(t *testing.T) {
	pic := filepath.Join(t.TempDir(), "ada.png")
	require.NoError(t, os.WriteFile(pic, []byte("\x89PNG"), 0o600))

	a, out := newApp(t, "Secret1\n")
	err := a.register(context.Background(), []string{
		"-name", "Ada Lovelace", "-email", "ada@example.com", "-picture", pic, "-task", "note",
	})
	require.NoError(t, err)
	assert.Equal(t, "Registration successful\n", out.String())
}

func TestStringList(t *testing.T) {
	var l stringList
	require.NoError(t, l.Set("a"))
	require.NoError(t, l.Set("b"))
	assert.Equal(t, "a, b", l.String())
}
