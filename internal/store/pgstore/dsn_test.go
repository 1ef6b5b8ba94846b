package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"url untouched", "postgres://u:p@localhost:5432/db?sslmode=require",
			"postgres://u:p@localhost:5432/db?sslmode=require"},
		{"postgresql scheme untouched", "postgresql://u@h/db", "postgresql://u@h/db"},
		{"trims whitespace and quotes", `  "postgres://u@h/db"  `, "postgres://u@h/db"},
		{"kv gets sslmode default", "host=localhost user=app dbname=facturador",
			"host=localhost user=app dbname=facturador sslmode=disable"},
		{"kv keeps explicit sslmode", "host=localhost dbname=db sslmode=require",
			"host=localhost dbname=db sslmode=require"},
		{"kv collapses spacing", "host=localhost   user=app\tdbname=db",
			"host=localhost user=app dbname=db sslmode=disable"},
		{"non dsn passthrough", "not a dsn at all", "not a dsn at all"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDSN(tc.in))
		})
	}
}
