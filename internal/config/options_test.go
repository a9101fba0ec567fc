package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	d := DefaultOptions()
	assert.Equal(t, 5000, d.BusyTimeoutMillis)
	assert.True(t, d.ForeignKeys)
	assert.Equal(t, 256, d.MaxVariables)
}

func TestWithDefaultsFillsOnlyZeroFields(t *testing.T) {
	o := Options{MaxVariables: 10}.WithDefaults()
	assert.Equal(t, 10, o.MaxVariables)
	assert.Equal(t, 5000, o.BusyTimeoutMillis)
}

func TestCheckCompatibility(t *testing.T) {
	assert.NoError(t, CheckCompatibility(SchemaVersion))
	assert.Error(t, CheckCompatibility("0"))
	assert.Error(t, CheckCompatibility(""))
}
