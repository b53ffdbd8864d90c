package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nameforge/pkg/batch/support/util/configbinder"
)

type connection struct {
	Type    string `yaml:"type"`
	Port    int    `yaml:"port"`
	UseTLS  bool   `yaml:"use_tls"`
	BaseDir string `yaml:"base_dir"`
}

func TestBindProperties(t *testing.T) {
	var c connection
	err := configbinder.BindProperties(map[string]interface{}{
		"type":     "postgres",
		"port":     "5432",
		"use_tls":  "true",
		"base_dir": "/data",
	}, &c)
	require.NoError(t, err)
	assert.Equal(t, connection{Type: "postgres", Port: 5432, UseTLS: true, BaseDir: "/data"}, c)
}

func TestBindProperties_Error(t *testing.T) {
	var c connection
	err := configbinder.BindProperties(map[string]interface{}{"port": "not-a-number"}, &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection")

	err = configbinder.BindProperties("just a string", &c)
	assert.Error(t, err)
}
