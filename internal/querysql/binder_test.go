package querysql

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinder_String(t *testing.T) {
	testCases := []struct {
		name   string
		binder *Binder
		want   string
	}{
		{
			name:   "named",
			binder: &Binder{Source: BindNamed, Name: "name", Span: 1, Type: "string"},
			want:   ":name string",
		},
		{
			name:   "positional",
			binder: &Binder{Source: BindPositional, Position: 2, Span: 1, Type: "long"},
			want:   "?2 long",
		},
		{
			name:   "spanning",
			binder: &Binder{Source: BindNamed, Name: "key", Column: 1, Span: 2, Type: "integer"},
			want:   ":key[1/2] integer",
		},
		{
			name:   "literal",
			binder: &Binder{Source: BindLiteral, Span: 1, Type: "big_integer", Value: big.NewInt(42)},
			want:   "literal(42) big_integer",
		},
		{
			name:   "untyped",
			binder: &Binder{Source: BindNamed, Name: "x", Span: 1},
			want:   ":x",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.binder.String())
		})
	}
}
