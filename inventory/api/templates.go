package api

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/andrebq/stockroom/internal/logutil"
	"github.com/andrebq/stockroom/inventory"
)

type (
	loginPage struct {
		Login   string
		Message string
	}

	productsPage struct {
		Products []inventory.Product
	}

	formPage struct {
		Title   string
		Action  string
		Product inventory.Product
		Message string
	}

	errorPage struct {
		Title   string
		Message string
	}
)

const (
	msgInvalidCredentials = "Incorrect username or password."
	msgTryAgainLater      = "Please try again later."
)

var pages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.}} - stockroom</title></head>
<body>{{end}}

{{define "foot"}}</body>
</html>{{end}}

{{define "login"}}{{template "head" "Login"}}
<h1>Login</h1>
{{if .Message}}<p class="error">{{.Message}}</p>{{end}}
<form method="post" action="/login">
  <label>Email <input type="text" name="username" value="{{.Login}}" required></label>
  <label>Password <input type="password" name="password" required></label>
  <button type="submit">Login</button>
</form>
{{template "foot"}}{{end}}

{{define "products"}}{{template "head" "Products"}}
<h1>Products</h1>
<p><a href="/add">Add product</a> | <a href="/logout">Logout</a></p>
{{if .Products}}
<table>
  <thead><tr><th>Name</th><th>Description</th><th>Quantity</th><th>Price</th><th></th></tr></thead>
  <tbody>
  {{range .Products}}
  <tr>
    <td>{{.Name}}</td>
    <td>{{.Description}}</td>
    <td>{{.Quantity}}</td>
    <td>{{printf "%.2f" .Price}}</td>
    <td>
      <a href="/edit/{{.ID}}">Edit</a>
      <form method="post" action="/delete/{{.ID}}" style="display:inline"><button type="submit">Delete</button></form>
    </td>
  </tr>
  {{end}}
  </tbody>
</table>
{{else}}
<p>No products yet.</p>
{{end}}
{{template "foot"}}{{end}}

{{define "form"}}{{template "head" .Title}}
<h1>{{.Title}}</h1>
{{if .Message}}<p class="error">{{.Message}}</p>{{end}}
<form method="post" action="{{.Action}}">
  {{with .Product}}
  <label>Name <input type="text" name="name" value="{{.Name}}" required></label>
  <label>Description <textarea name="description">{{.Description}}</textarea></label>
  <label>Quantity <input type="number" name="quantity" min="0" value="{{.Quantity}}" required></label>
  <label>Price <input type="number" name="price" min="0" step="0.01" value="{{.Price}}" required></label>
  {{end}}
  <button type="submit">Save</button>
</form>
<p><a href="/products">Back</a></p>
{{template "foot"}}{{end}}

{{define "error"}}{{template "head" .Title}}
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
<p><a href="/">Back</a></p>
{{template "foot"}}{{end}}
`))

// render executes the template to memory first so a failing template
// never leaves a half written page behind.
func render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	err := pages.ExecuteTemplate(&buf, name, data)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("template", name).Msg("Unable to render page")
		http.Error(w, "unable to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	render(w, r, status, "error", errorPage{Title: title, Message: message})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("Unable to encode response")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(status)
	w.Write(buf)
}
