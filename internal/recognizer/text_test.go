package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostProcessText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts CleanOptions
		want string
	}{
		{name: "empty", in: "", opts: DefaultCleanOptions(), want: ""},
		{name: "full width folds to ascii", in: "ＡＢ１２", opts: DefaultCleanOptions(), want: "AB12"},
		{name: "zero width removed", in: "AB\u200B12", opts: DefaultCleanOptions(), want: "AB12"},
		{name: "control removed", in: "AB\x0712", opts: DefaultCleanOptions(), want: "AB12"},
		{name: "spaces kept", in: " AB 12 ", opts: DefaultCleanOptions(), want: " AB 12 "},
		{name: "uppercase", in: "ab12", opts: CleanOptions{Uppercase: true}, want: "AB12"},
		{name: "no normalization", in: "ＡＢ", opts: CleanOptions{NormalizeForm: "none"}, want: "ＡＢ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PostProcessText(tt.in, tt.opts))
		})
	}
}
