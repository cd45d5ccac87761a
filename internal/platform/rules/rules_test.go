package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
)

const sample = "MSH|^~\\&|APP|FAC|||20240115143025||ORU^R01|42|P|2.3\r" +
	"PID|||E12345^^^^EPI||Smith^John||  |U\r" +
	"PV1||I|8-3600^^8-3604&4&1\r" +
	"OBX||NM|0002-4bb8^SpO2^MDIL|0|98\r" +
	"OBX||NM|0002-5000^SML^MDIL|0|2.73x10\\S\\-7\r" +
	"OBX||NM|0002-f125^pNN50^MDIL|0|-0.50\r"

func parseSample(t *testing.T) *hl7v2.Message {
	t.Helper()
	msg, err := hl7v2.ParseString(sample)
	require.NoError(t, err)
	return msg
}

func mustRule(t *testing.T, path string, kind Kind) Rule {
	t.Helper()
	r, err := New(path, kind)
	require.NoError(t, err)
	return r
}

func TestEvaluate(t *testing.T) {
	msg := parseSample(t)

	tests := []struct {
		name string
		path string
		kind Kind
		want bool
	}{
		{"segment exists", "PV1", Exist, true},
		{"segment exists non-empty", "PV1", ExistNonEmpty, true},
		{"segment missing", "NK1", Exist, false},
		{"segment never numeric", "PV1", Numeric, false},
		{"composite field exists", "PV1-3", Exist, true},
		{"absent field", "PV1-4", Exist, false},
		{"subcomponent exists", "PV1-3.3.2", Exist, true},
		{"whitespace only is empty", "PID-7", ExistNonEmpty, false},
		{"whitespace only exists", "PID-7", Exist, true},
		{"non-empty value", "PID-5.1", ExistNonEmpty, true},
		{"integer", "OBX-5", Numeric, true},
		{"escaped text is not numeric", "OBX[1]-5", Numeric, false},
		{"signed decimal", "OBX[2]-5", Numeric, true},
		{"text is not numeric", "PID-5.1", Numeric, false},
		{"missing is not numeric", "ZZZ-1", Numeric, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(msg, mustRule(t, tt.path, tt.kind)))
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("pid-3", Exist)
	assert.ErrorIs(t, err, hl7v2.ErrMalformedLocation)

	_, err = New("PID-3", Kind("required"))
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" EXIST_NON_EMPTY ")
	require.NoError(t, err)
	assert.Equal(t, ExistNonEmpty, k)

	_, err = ParseKind("present")
	assert.Error(t, err)
}

func TestSet_EvaluateAll(t *testing.T) {
	msg := parseSample(t)
	set := Set{
		mustRule(t, "PID-3", Exist),
		mustRule(t, "OBX-5", Numeric),
		mustRule(t, "PID-7", ExistNonEmpty),
	}

	res := set.EvaluateAll(msg)
	require.Len(t, res.Outcomes, 3)
	assert.False(t, res.Passed())
	assert.Equal(t, "E12345^^^^EPI", res.Outcomes[0].Value)
	assert.Equal(t, "98", res.Outcomes[1].Value)

	failures := res.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "PID-7", failures[0].Rule.Path)

	assert.False(t, set.Passes(msg))
	assert.True(t, set[:2].Passes(msg))
}

func TestSet_Empty(t *testing.T) {
	msg := parseSample(t)
	var set Set
	assert.True(t, set.EvaluateAll(msg).Passed())
	assert.True(t, set.Passes(msg))
}

func TestParse(t *testing.T) {
	doc := []byte(`
rules:
  - path: PID-3
    rule: exist
  - path: OBX-5
    rule: Numeric
  - path: MSH-10
    rule: exist_non_empty
`)
	set, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, Numeric, set[1].Kind)
	assert.Equal(t, "MSH-10", set[2].Location.String())

	assert.True(t, set.Passes(parseSample(t)))
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown kind": "rules:\n  - path: PID-3\n    rule: required\n",
		"bad path":     "rules:\n  - path: PID-x\n    rule: exist\n",
		"missing kind": "rules:\n  - path: PID-3\n",
		"not yaml":     "rules: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - path: PV1\n    rule: exist\n"), 0o644))

	set, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.True(t, set.Passes(parseSample(t)))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
