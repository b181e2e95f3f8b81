package build

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/packsmith/internal/generate"
)

func TestDeepCopyMetaIsolation(t *testing.T) {
	original := map[string]any{
		"nested": map[string]any{"list": []any{1, "two"}},
		"flag":   true,
	}
	copied := deepCopyMeta(original)
	copied["nested"].(map[string]any)["list"].([]any)[0] = 99
	copied["flag"] = false

	assert.Equal(t, 1, original["nested"].(map[string]any)["list"].([]any)[0])
	assert.Equal(t, true, original["flag"])
}

func TestContextNamespace(t *testing.T) {
	ctx := &Context{ProjectID: "demo", Meta: map[string]any{}}
	assert.Equal(t, "demo", ctx.namespace())

	ctx.Meta[generate.MetaNamespace] = "custom"
	assert.Equal(t, "custom", ctx.namespace())
}
