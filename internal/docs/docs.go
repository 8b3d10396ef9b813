// Package docs serves the OpenAPI description of the API. The document is
// embedded, validated with kin-openapi, and registered with swag so that
// echo-swagger can render it under /swagger/.
package docs

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var source []byte

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(source)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

type document struct {
	json string
}

func (d document) ReadDoc() string {
	return d.json
}

var (
	registerOnce sync.Once
	registerErr  error
)

// Register publishes the document as the default swag instance. Later
// calls return the result of the first.
func Register(ctx context.Context) error {
	registerOnce.Do(func() {
		doc, err := Load(ctx)
		if err != nil {
			registerErr = err
			return
		}
		b, err := doc.MarshalJSON()
		if err != nil {
			registerErr = fmt.Errorf("encode openapi document: %w", err)
			return
		}
		swag.Register(swag.Name, document{json: string(b)})
	})
	return registerErr
}
