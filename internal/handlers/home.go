package handlers

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed content/home.md
var homeMarkdown []byte

const homeTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>dryad</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
pre { background: #f5f5f5; padding: 0.8rem; overflow-x: auto; }
</style>
</head>
<body>
%s
</body>
</html>
`

// HomeHandler serves the landing page rendered from embedded markdown.
type HomeHandler struct {
	page []byte
}

// NewHomeHandler renders the landing page once.
func NewHomeHandler() (*HomeHandler, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert(homeMarkdown, &body); err != nil {
		return nil, fmt.Errorf("failed to render home page: %w", err)
	}
	return &HomeHandler{page: fmt.Appendf(nil, homeTemplate, body.String())}, nil
}

func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.page)
}
