package rbdberr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesDirectCode(t *testing.T) {
	err := UnknownPredicate("human")
	assert.True(t, Is(err, CodeUnknownPredicate))
	assert.False(t, Is(err, CodeMissingRelation))
}

func TestIsMatchesThroughWrapChain(t *testing.T) {
	root := errors.New("no such table: human")
	err := errors.Wrap(MissingRelation("human"), "materialize rescue failed")
	assert.True(t, Is(err, CodeMissingRelation))
	_ = root
}

func TestWrapPreservesCause(t *testing.T) {
	root := errors.New("driver error")
	err := Wrap(CodeEncodingError, root, "could not encode formula")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not encode formula")
	assert.Contains(t, err.Error(), "driver error")
}

func TestCodeStringIsStable(t *testing.T) {
	assert.Equal(t, "missing_relation", CodeMissingRelation.String())
	assert.Equal(t, "wrong_parameter_count", CodeWrongParameterCount.String())
}
