package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	from, to, err := ParseDateRange("2024-01-01", " 2024-01-31 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", from.Format(DateLayout))
	assert.Equal(t, "2024-01-31", to.Format(DateLayout))

	_, _, err = ParseDateRange("2024-02-01", "2024-01-31")
	assert.True(t, errors.Is(err, ErrorInvalidDateRange))

	_, _, err = ParseDateRange("01/02/2024", "2024-01-31")
	assert.Error(t, err)
}

func TestExecTemplate(t *testing.T) {
	sql, err := ExecTemplate(`SELECT 1 {{- if .customerKey }} AND customer_key = @customerKey {{- end }}`, map[string]interface{}{
		"customerKey": "A",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 AND customer_key = @customerKey", sql)

	sql, err = ExecTemplate(`SELECT 1 {{- if .customerKey }} AND customer_key = @customerKey {{- end }}`, map[string]interface{}{
		"customerKey": "",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
}

func TestProcessValidationErrors(t *testing.T) {
	type req struct {
		From string `validate:"required"`
	}
	err := ValidateStruct(req{})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"From": "required"}, ProcessValidationErrors(err))
	assert.Equal(t, map[string]string{"request": "boom"}, ProcessValidationErrors(errors.New("boom")))
}

func TestDereferencePtr(t *testing.T) {
	var s *string
	assert.Equal(t, "fallback", DereferencePtr(s, "fallback"))
	v := "x"
	assert.Equal(t, "x", DereferencePtr(&v))
	assert.Nil(t, NilIfEmpty(""))
}
