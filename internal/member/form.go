package member

import (
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// NormalizeTasks collects the notes of a submitted form into one list.
// Browsers and clients send them as a repeated `tasks` field, as `tasks[]`,
// or as indexed `tasks[0]`, `tasks[1]`, ... fields; all three forms are
// accepted and indexed fields are ordered by their number. Values are kept
// as sent so validation sees blank notes.
func NormalizeTasks(form url.Values) []string {
	tasks := []string{}
	tasks = append(tasks, form["tasks"]...)
	tasks = append(tasks, form["tasks[]"]...)

	type indexed struct {
		i int
		v []string
	}
	var idx []indexed
	for k, v := range form {
		if !strings.HasPrefix(k, "tasks[") || !strings.HasSuffix(k, "]") {
			continue
		}
		n, err := strconv.Atoi(k[len("tasks[") : len(k)-1])
		if err != nil || n < 0 {
			continue
		}
		idx = append(idx, indexed{n, v})
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a].i < idx[b].i })
	for _, e := range idx {
		tasks = append(tasks, e.v...)
	}
	return tasks
}

// parseForm reads a urlencoded or multipart body into r.Form.
func parseForm(r *http.Request, maxMemory int64) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

// pictureType is the declared type of an uploaded part, or the type implied
// by its extension when the client sent none.
func pictureType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return declared
}
