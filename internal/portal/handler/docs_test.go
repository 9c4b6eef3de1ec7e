package handler

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	_ "gdg-portal/internal/portal/docs"
)

func TestSwaggerDocCoversRoutes(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	p := newPortal(t)
	routes := p.e.Routes()
	require.NotEmpty(t, routes)
	for _, r := range routes {
		ops, ok := doc.Paths[r.Path]
		if !assert.Truef(t, ok, "文档缺少路径 %s", r.Path) {
			continue
		}
		_, ok = ops[strings.ToLower(r.Method)]
		assert.Truef(t, ok, "文档缺少 %s %s", r.Method, r.Path)
	}

	for _, path := range []string{"/health", "/ready"} {
		assert.Contains(t, doc.Paths, path)
	}
}
