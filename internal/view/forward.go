// Package view serves the browser pages. Task list URLs are forwarded to a
// single static page which reads the list id from its own location.
package view

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// TasksPage is the static resource behind every /task-lists/{id} URL.
const TasksPage = "/tasks.html"

//go:embed static
var content embed.FS

// Forward is a server-side forward: the response carries Target's content
// while the address bar keeps the requested URL.
type Forward struct {
	Target string
}

// TaskPage returns the forward for a task list URL. The id is never
// inspected; the page resolves it client-side.
func TaskPage(id string) Forward {
	return Forward{Target: TasksPage}
}

// Static returns the embedded pages rooted at the site root.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// RegisterRoutes mounts the pages in files and the task list forward.
func RegisterRoutes(r chi.Router, files fs.FS) {
	pages := http.FileServerFS(files)

	taskPage := func(w http.ResponseWriter, req *http.Request) {
		serveForward(w, req, pages, TaskPage(chi.URLParam(req, "id")))
	}
	r.Get("/task-lists/{id}", taskPage)
	r.Get("/task-lists/", taskPage)

	r.Get("/", pages.ServeHTTP)
	r.Get(TasksPage, pages.ServeHTTP)
}

func serveForward(w http.ResponseWriter, r *http.Request, next http.Handler, fwd Forward) {
	fr := r.Clone(r.Context())
	fr.URL.Path = fwd.Target
	fr.URL.RawPath = ""
	next.ServeHTTP(w, fr)
}
