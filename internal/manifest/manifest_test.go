package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	m, err := Parse(strings.NewReader("flask>=2.3\nrequests\n"))
	require.NoError(t, err)
	assert.True(t, m.Valid())
	require.Len(t, m.Requirements, 2)

	assert.Equal(t, "flask", m.Requirements[0].Name)
	require.Len(t, m.Requirements[0].Constraints, 1)
	assert.Equal(t, OpGreaterEqual, m.Requirements[0].Constraints[0].Op)
	assert.Equal(t, "2.3", m.Requirements[0].Constraints[0].Version)

	assert.Equal(t, "requests", m.Requirements[1].Name)
	assert.Empty(t, m.Requirements[1].Constraints)
}

func TestParseCommentsAndBlanks(t *testing.T) {
	input := `# Web framework

flask>=2.3  # serves the API

# plays generated audio
simpleaudio>=1.0.4
`
	m, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, m.Valid())

	// Prose comments never turn into requirements.
	require.Len(t, m.Requirements, 2)

	flask := m.Find("flask")
	require.NotNil(t, flask)
	assert.Equal(t, "serves the API", flask.Comment)
	assert.False(t, flask.Deferred)

	sa := m.Find("simpleaudio")
	require.NotNil(t, sa)
	assert.Equal(t, 6, sa.Line)
}

func TestParseDeferredRequirement(t *testing.T) {
	m, err := Parse(strings.NewReader("pillow>=10.0.0\n# watchdog\n"))
	require.NoError(t, err)
	assert.True(t, m.Valid())
	require.Len(t, m.Requirements, 2)

	wd := m.Find("watchdog")
	require.NotNil(t, wd)
	assert.True(t, wd.Deferred)
}

func TestParseDeferredRequirementWithConstraint(t *testing.T) {
	m, err := Parse(strings.NewReader("# watchdog>=3.0\n"))
	require.NoError(t, err)
	require.Len(t, m.Requirements, 1)
	assert.True(t, m.Requirements[0].Deferred)
	require.Len(t, m.Requirements[0].Constraints, 1)
	assert.Equal(t, "3.0", m.Requirements[0].Constraints[0].Version)
}

func TestParseOperators(t *testing.T) {
	cases := []struct {
		spec string
		op   Operator
	}{
		{"a==1.0", OpEqual},
		{"a!=1.0", OpNotEqual},
		{"a>=1.0", OpGreaterEqual},
		{"a<=1.0", OpLessEqual},
		{"a>1.0", OpGreater},
		{"a<1.0", OpLess},
		{"a~=1.0", OpCompatible},
		{"a===1.0", OpArbitrary},
	}
	for _, tc := range cases {
		m, err := Parse(strings.NewReader(tc.spec))
		require.NoError(t, err)
		require.True(t, m.Valid(), "spec %q", tc.spec)
		require.Len(t, m.Requirements[0].Constraints, 1)
		assert.Equal(t, tc.op, m.Requirements[0].Constraints[0].Op, "spec %q", tc.spec)
	}
}

func TestParseMultipleConstraints(t *testing.T) {
	m, err := Parse(strings.NewReader("torch>=2.0,<3.0\n"))
	require.NoError(t, err)
	require.True(t, m.Valid())
	require.Len(t, m.Requirements[0].Constraints, 2)
	assert.Equal(t, "2.0", m.Requirements[0].Constraints[0].Version)
	assert.Equal(t, OpLess, m.Requirements[0].Constraints[1].Op)
}

func TestParseExtras(t *testing.T) {
	m, err := Parse(strings.NewReader("uvicorn[standard]>=0.23\n"))
	require.NoError(t, err)
	require.True(t, m.Valid())
	assert.Equal(t, []string{"standard"}, m.Requirements[0].Extras)
	assert.Equal(t, "uvicorn[standard]>=0.23", m.Requirements[0].String())
}

func TestParseEnvironmentMarker(t *testing.T) {
	m, err := Parse(strings.NewReader(`numpy>=1.24 ; python_version >= "3.10"` + "\n"))
	require.NoError(t, err)
	require.True(t, m.Valid())
	assert.Equal(t, `python_version >= "3.10"`, m.Requirements[0].Marker)
}

func TestParseInvalidLines(t *testing.T) {
	input := "flask>=2.3\n>=1.0\ngood-name\nbad name here\npkg>>1.0\n-leading==1\n"
	m, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.False(t, m.Valid())
	assert.Len(t, m.Errors, 4)
	assert.Len(t, m.Requirements, 2)
	for _, pe := range m.Errors {
		assert.Contains(t, pe.Error(), "line ")
	}
}

func TestParseDuplicate(t *testing.T) {
	m, err := Parse(strings.NewReader("Pillow>=10.0\npillow>=9.0\n"))
	require.NoError(t, err)
	assert.False(t, m.Valid())
	require.Len(t, m.Errors, 1)
	assert.Contains(t, m.Errors[0].Error(), "duplicate")
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "pillow", NormalizeName("Pillow"))
	assert.Equal(t, "tts-client", NormalizeName("TTS__Client"))
	assert.Equal(t, "a-b-c", NormalizeName("a.b_c"))
}

func TestValidVersion(t *testing.T) {
	for _, v := range []string{"1", "1.0", "2.3.0", "10.0.0", "1.0rc1", "1.0.post1", "2.*", "1.0+local.1"} {
		assert.True(t, validVersion(v), "version %q", v)
	}
	for _, v := range []string{"", "v1.0", ".1", "1..0", "1.0 beta"} {
		assert.False(t, validVersion(v), "version %q", v)
	}
}
