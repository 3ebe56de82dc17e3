package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "golang", want: "golang"},
		{in: "_", want: `\_`},
		{in: "100%", want: `100\%`},
		{in: `c:\go`, want: `c:\\go`},
		{in: `%_\`, want: `\%\_\\`},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.in))
		})
	}
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "r.id, r.user_id, r.status", qualify("id, user_id,status", "r"))
}
