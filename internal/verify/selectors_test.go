package verify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Наши филиалы", "'Наши филиалы'"},
		{"it's", `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat('it', "'", 's "x"')`},
		{`'`, `"'"`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, xpathLiteral(tt.in), tt.in)
	}
}

func TestTextXPath(t *testing.T) {
	got := TextXPath("Способ получения")
	assert.Equal(t,
		"//body//*[contains(normalize-space(.), 'Способ получения') and not(*[contains(normalize-space(.), 'Способ получения')])]",
		got,
	)
}

func TestRoleXPath(t *testing.T) {
	got, err := RoleXPath([]string{"heading"}, "Наши филиалы")
	require.NoError(t, err)
	assert.Equal(t,
		"//*[(self::h1 or self::h2 or self::h3 or self::h4 or self::h5 or self::h6 or @role='heading') and contains(normalize-space(.), 'Наши филиалы')]",
		got,
	)

	got, err = RoleXPath([]string{" Button "}, "Сохранить")
	require.NoError(t, err)
	assert.Contains(t, got, "self::button")
	assert.Contains(t, got, "@role='button'")
	assert.Contains(t, got, "'Сохранить'")

	got, err = RoleXPath([]string{"tab"}, "")
	require.NoError(t, err)
	assert.Equal(t, "//*[(@role='tab')]", got)
}

func TestRoleXPath_Errors(t *testing.T) {
	_, err := RoleXPath(nil, "x")
	assert.Error(t, err)

	_, err = RoleXPath([]string{" ", ""}, "x")
	assert.Error(t, err)
}

func TestHiddenJS(t *testing.T) {
	js := hiddenJS(TextXPath("a"))
	assert.Contains(t, js, "document.evaluate(")
	assert.Contains(t, js, "normalize-space(.), 'a'")
}

func TestStepError(t *testing.T) {
	base := errors.New("net::ERR_CONNECTION_REFUSED")
	err := fmt.Errorf("run: %w", &StepError{Step: StepNavigate, Err: base})

	assert.Equal(t, StepNavigate, FailedStep(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "run: navigate: net::ERR_CONNECTION_REFUSED", err.Error())
	assert.Equal(t, Step(""), FailedStep(base))
}
