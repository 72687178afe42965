// Package swagger serves the OpenAPI document and the Swagger UI that renders it.
package swagger

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

// DocumentPath is where the router exposes the raw document.
const DocumentPath = "/openapi.yml"

// Document is a parsed and validated OpenAPI description kept alongside its source bytes.
type Document struct {
	raw []byte
	doc *openapi3.T
}

// Load parses the document at path and fails if it is not a valid OpenAPI 3 description.
func Load(ctx context.Context, path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read openapi document: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &Document{raw: raw, doc: doc}, nil
}

func (d *Document) Title() string {
	if d.doc.Info == nil {
		return ""
	}
	return d.doc.Info.Title
}

// HasOperation reports whether method and path template are described.
func (d *Document) HasOperation(method, path string) bool {
	if d.doc.Paths == nil {
		return false
	}
	item := d.doc.Paths.Find(path)
	if item == nil {
		return false
	}
	return item.GetOperation(method) != nil
}

func (d *Document) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(d.raw)
}

// Handler serves the Swagger UI pointed at DocumentPath.
func Handler() http.Handler {
	return httpSwagger.Handler(httpSwagger.URL(DocumentPath))
}
