package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workshopYAML = `
variables:
  - id: ignition
    choices: ["off", "running"]
    initial: "off"
  - id: battery
    choices: [ok, low]
    normal: ok
actions:
  - id: start_engine
    cost: 2
    precondition: {var: battery, eq: ok}
    effects:
      - var: ignition
        set:
          - value: running
  - id: check_battery
    cost: -1
    observes: [battery]
  - id: measure
    cost: 3
    target_only: true
    precondition:
      all:
        - {var: ignition, eq: running}
        - not: {var: battery, eq: low}
targets:
  - id: measurement
    actions: [measure]
    benefit: 4
state:
  values:
    battery: ok
  excluded: [check_battery]
  final: [battery]
surcharges:
  - action: measure
    when: {var: ignition, in: ["off"]}
    extra: 1
`

func TestParseAndBuild(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(workshopYAML))
	require.NoError(t, err)

	bundle, err := doc.Build()
	require.NoError(t, err)

	require.Len(t, bundle.KB.Actions(), 3)
	measure, ok := bundle.KB.Action("measure")
	require.True(t, ok)
	assert.True(t, measure.TargetOnly)
	assert.Equal(t, "(ignition=running & !(battery=low))", measure.Precondition.String())

	assert.Equal(t, Value("ok"), bundle.State.Value("battery"))
	assert.Equal(t, Value("off"), bundle.State.Value("ignition"))
	assert.True(t, bundle.State.IsExcluded("check_battery"))
	assert.Equal(t, map[string]Value{"battery": "ok"}, bundle.State.FinalValues())

	require.Len(t, bundle.Targets, 1)
	assert.Equal(t, []string{"measure"}, bundle.Targets[0].Actions)
	assert.InDelta(t, 4.0, bundle.Targets[0].Benefit, 1e-9)

	assert.InDelta(t, 4.0, bundle.Costs.Costs(measure, bundle.State), 1e-9)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
variables: []
actions:
  - id: a
    cost: 1
    precondition: {var: x}
targets:
  - id: t
    actions: [a]
    benefit: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestBuildRejectsUnknownReferences(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`
variables:
  - id: x
    choices: ["0", "1"]
actions:
  - id: a
    cost: 1
targets:
  - id: t
    actions: [b]
    benefit: 1
state:
  values: {y: "1"}
  excluded: [c]
`))
	require.NoError(t, err)

	_, err = doc.Build()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}

func TestLoadReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(workshopYAML), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Variables, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExampleKnowledgeBase(t *testing.T) {
	t.Parallel()

	doc, err := Load(filepath.Join("..", "..", "examples", "workshop.yaml"))
	require.NoError(t, err)
	bundle, err := doc.Build()
	require.NoError(t, err)
	assert.Len(t, bundle.KB.Actions(), 6)
	assert.InDelta(t, -2, bundle.KB.NegativeCostSum(), 1e-9)
	assert.Len(t, bundle.Targets, 2)
}
