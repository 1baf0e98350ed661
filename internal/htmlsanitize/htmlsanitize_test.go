package htmlsanitize_test

import (
	"testing"

	"github.com/jrsteele09/go-teamchat/internal/htmlsanitize"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"plain text", "hello team", "hello team"},
		{"trims", "  hello  ", "hello"},
		{"strips tags", "<b>bold</b> move", "bold move"},
		{"drops scripts", "hi<script>alert('x')</script>", "hi"},
		{"keeps comparisons", "a < b && c > d", "a < b && c > d"},
		{"keeps quotes", `she said "ok"`, `she said "ok"`},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, htmlsanitize.PlainText(tt.in))
		})
	}
}
