package engine

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/macro"
)

func testMacros() *macro.Context {
	return macro.NewContext(
		domain.Host{ID: 1, Host: "web-01", IP: "10.0.0.5", UseIP: true},
		[]domain.UserMacro{
			{HostID: 1, Name: "USER", Value: "admin"},
			{HostID: 1, Name: "PASS", Value: "p@ss", Type: domain.MacroSecret},
			{HostID: 1, Name: "HDR", Value: "X-Secret", Type: domain.MacroSecret},
		},
	)
}

func TestResolveStepFields_GroupsByKind(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "X-Host", Value: "{HOST.HOST}", Kind: domain.FieldHeader},
		{ID: 2, Name: "{SID}", Value: "regex:sid=(\\w+)", Kind: domain.FieldVariable},
		{ID: 3, Name: "user", Value: "{$USER}", Kind: domain.FieldPostField},
		{ID: 4, Name: "q", Value: "{TOKEN}", Kind: domain.FieldQueryField},
		{ID: 5, Name: "X-Host", Value: "dup", Kind: domain.FieldHeader},
	}
	vars := Variables{"{TOKEN}": "abc"}

	got, err := ResolveStepFields(fields, testMacros(), vars)
	require.NoError(t, err)

	// порядок и дубликаты сохраняются
	assert.Equal(t, domain.Pairs{{Key: "X-Host", Value: "web-01"}, {Key: "X-Host", Value: "dup"}}, got.Headers)
	assert.Equal(t, domain.Pairs{{Key: "{SID}", Value: "regex:sid=(\\w+)"}}, got.Variables)
	assert.Equal(t, domain.Pairs{{Key: "user", Value: "admin"}}, got.Post)
	assert.Equal(t, domain.Pairs{{Key: "q", Value: "abc"}}, got.Query)
}

func TestResolveStepFields_VariableNamesUntouched(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "{$USER}", Value: "{$USER}", Kind: domain.FieldVariable},
	}

	got, err := ResolveStepFields(fields, testMacros(), Variables{"{$USER}": "x"})
	require.NoError(t, err)

	// имя переменной не проходит ни макросы, ни переменные; значение проходит только макросы
	assert.Equal(t, domain.Pairs{{Key: "{$USER}", Value: "admin"}}, got.Variables)
}

func TestResolveStepFields_SecretsInKeysAreMasked(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "{$HDR}", Value: "{$PASS}", Kind: domain.FieldHeader},
	}

	got, err := ResolveStepFields(fields, testMacros(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Pairs{{Key: "******", Value: "p@ss"}}, got.Headers)
}

func TestResolveStepFields_EncodingRoundTrip(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "a b", Value: "c&d", Kind: domain.FieldQueryField},
	}

	got, err := ResolveStepFields(fields, testMacros(), nil)
	require.NoError(t, err)

	u, err := BuildURL("http://example.com/search", got.Query)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/search?a%20b=c%26d", u)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, []string{"c&d"}, parsed.Query()["a b"])
}

func TestResolveStepFields_Idempotent(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "t", Value: "{{TOKEN}.urlencode()}", Kind: domain.FieldQueryField},
		{ID: 2, Name: "Authorization", Value: "Basic {$PASS}", Kind: domain.FieldHeader},
	}
	vars := Variables{"{TOKEN}": "a/b c"}

	first, err := ResolveStepFields(fields, testMacros(), vars)
	require.NoError(t, err)
	second, err := ResolveStepFields(fields, testMacros(), vars)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveStepFields_MacroErrorDropsEverything(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "ok", Value: "1", Kind: domain.FieldHeader},
		{ID: 2, Name: "bad", Value: "{$broken", Kind: domain.FieldHeader},
	}

	got, err := ResolveStepFields(fields, testMacros(), nil)
	require.Error(t, err)
	assert.Empty(t, got.Headers)

	var macroErr *domain.MacroError
	assert.ErrorAs(t, err, &macroErr)
}

func TestResolveScenarioFields_RejectsStepKinds(t *testing.T) {
	fields := []domain.Field{
		{ID: 7, Name: "q", Value: "1", Kind: domain.FieldQueryField},
	}

	_, err := ResolveScenarioFields(fields, testMacros())
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestResolveScenarioFields_NoVariableSubstitution(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "X-Token", Value: "{TOKEN}", Kind: domain.FieldHeader},
		{ID: 2, Name: "{TOKEN}", Value: "static", Kind: domain.FieldVariable},
	}

	got, err := ResolveScenarioFields(fields, testMacros())
	require.NoError(t, err)
	assert.Equal(t, domain.Pairs{{Key: "X-Token", Value: "{TOKEN}"}}, got.Headers)
	assert.Equal(t, domain.Pairs{{Key: "{TOKEN}", Value: "static"}}, got.Variables)
}

func TestPrepareStep(t *testing.T) {
	step := domain.WebScenarioStep{
		No:          2,
		URL:         "http://{HOST.CONN}/api?t={TOKEN}",
		Timeout:     "15s",
		Required:    "Hello {$PASS}",
		StatusCodes: "200",
		PostType:    domain.PostTypeRaw,
		Posts:       `{"user":"{$USER}","token":"{TOKEN}"}`,
	}

	got, err := PrepareStep(step, testMacros(), Variables{"{TOKEN}": "XYZ"})
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5/api?t=XYZ", got.URL)
	assert.Equal(t, "Hello ******", got.Required)
	assert.Equal(t, `{"user":"admin","token":"XYZ"}`, got.Posts)
	// исходный шаг не меняется
	assert.Equal(t, "http://{HOST.CONN}/api?t={TOKEN}", step.URL)
}

func TestPrepareStep_FormDropsRawBody(t *testing.T) {
	step := domain.WebScenarioStep{URL: "http://x/", PostType: domain.PostTypeForm, Posts: "ignored"}

	got, err := PrepareStep(step, testMacros(), nil)
	require.NoError(t, err)
	assert.Empty(t, got.Posts)
}

func TestPrepareStep_UndefinedMacro(t *testing.T) {
	step := domain.WebScenarioStep{URL: "http://{HOST.CONN}:{$MISSING.PORT}/", Timeout: "15s"}

	_, err := PrepareStep(step, testMacros(), nil)

	var macroErr *domain.MacroError
	require.ErrorAs(t, err, &macroErr)
	assert.Contains(t, macroErr.Error(), "{$MISSING.PORT}")
}

func TestResolveStepFields_UndefinedMacro(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "Authorization", Value: "Bearer {$API.TOKEN}", Kind: domain.FieldHeader},
	}

	_, err := ResolveStepFields(fields, testMacros(), nil)

	var macroErr *domain.MacroError
	assert.ErrorAs(t, err, &macroErr)
}
