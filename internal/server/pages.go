// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"html/template"
	"net/http"
)

var (
	successPage = template.Must(template.New("success").Parse(pageLayout("#10b981")))
	failurePage = template.Must(template.New("failure").Parse(pageLayout("#f43f5e")))
)

func pageLayout(accent string) string {
	return `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>RAGworks</title>
<style>
body{font-family:system-ui,sans-serif;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0;background:#f4f4f5}
main{background:#fff;border-top:4px solid ` + accent + `;padding:2rem 2.5rem;border-radius:8px;max-width:28rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
h1{font-size:1.25rem;margin:0 0 .5rem}
</style></head>
<body><main><h1>RAGworks</h1><p>{{.}}</p></main></body>
</html>`
}

func writePage(w http.ResponseWriter, status int, page *template.Template, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = page.Execute(w, message)
}
