package markup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		wantSuccess bool
		wantError   string
		wantHTML    string
	}{
		{
			name:        "paragraph renders",
			code:        "<p>hi</p>",
			wantSuccess: true,
			wantHTML:    "<p>hi</p>",
		},
		{
			name:      "script tag rejected",
			code:      "<script>x</script>",
			wantError: "<script>",
		},
		{
			name:      "script tag rejected regardless of case and attributes",
			code:      `<div><SCRIPT src="x.js"></SCRIPT></div>`,
			wantError: "<script>",
		},
		{
			name:      "empty rejected",
			code:      "",
			wantError: "Empty",
		},
		{
			name:      "whitespace only rejected",
			code:      " \n\t ",
			wantError: "Empty",
		},
	}

	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Run(context.Background(), tt.code, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSuccess, out.Success)
			assert.Equal(t, tt.wantHTML, out.HTMLContent)
			if tt.wantSuccess {
				assert.Empty(t, out.Error)
				assert.Equal(t, "HTML rendered successfully:\n\n"+tt.code, out.Output)
			} else {
				assert.Contains(t, out.Error, tt.wantError)
				assert.Empty(t, out.Output)
			}
		})
	}
}
