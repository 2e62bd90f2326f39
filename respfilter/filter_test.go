package respfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	c := NewCompiler()

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{name: "simple comparison", expression: `status == "active"`, wantErr: false},
		{name: "numeric", expression: `count > 3`, wantErr: false},
		{name: "empty expression", expression: "   ", wantErr: true},
		{name: "syntax error", expression: `status ==`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := c.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.ErrorAs(t, err, &compErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestMatch(t *testing.T) {
	c := NewCompiler()

	f, err := c.Compile(`status == "active" && count > 2`)
	require.NoError(t, err)
	assert.Equal(t, `status == "active" && count > 2`, f.Expression())

	matched, err := f.Match(map[string]any{"status": "active", "count": 5})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = f.Match(map[string]any{"status": "inactive", "count": 5})
	require.NoError(t, err)
	assert.False(t, matched)

	// Missing keys are treated as undefined, not an error.
	matched, err = f.Match(map[string]any{})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestApply(t *testing.T) {
	c := NewCompiler()

	items := []map[string]any{
		{"name": "a", "size": 10},
		{"name": "b", "size": 3},
		{"name": "c", "size": 25},
	}

	out, err := Apply(c, `size >= 10`, items)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0]["name"])
	assert.Equal(t, "c", out[1]["name"])
}

func TestCompileCache(t *testing.T) {
	c := NewCompiler(WithCache(2)).(*exprCompiler)

	first, err := c.Compile(`x > 1`)
	require.NoError(t, err)

	second, err := c.Compile(`x > 1`)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.cache.Size())

	_, err = c.Compile(`x > 2`)
	require.NoError(t, err)
	_, err = c.Compile(`x > 3`)
	require.NoError(t, err)
	assert.Equal(t, 2, c.cache.Size())
}
