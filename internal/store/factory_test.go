package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMemoryBackend(t *testing.T) {
	st, err := Create(BackendConfig{Type: "memory"})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.IsType(t, &MemoryStore{}, st)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	_, err := Create(BackendConfig{Type: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type")

	_, err = Create(BackendConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store type is required")
}

func TestCreateValidatesBackendConfig(t *testing.T) {
	_, err := Create(BackendConfig{Type: "mysql"})
	require.Error(t, err, "mysql backend needs a connection pool")

	_, err = Create(BackendConfig{Type: "dynamodb"})
	require.Error(t, err, "dynamodb backend needs a region and table names")

	_, err = Create(BackendConfig{Type: "dynamodb", Region: "us-east-1"})
	require.Error(t, err, "dynamodb backend needs table names")
}

func TestRegisteredTypes(t *testing.T) {
	types := RegisteredTypes()
	assert.Contains(t, types, "memory")
	assert.Contains(t, types, "mysql")
	assert.Contains(t, types, "dynamodb")
}

func TestRegisterFactoryPanics(t *testing.T) {
	assert.Panics(t, func() { RegisterFactory(nil) })
	assert.Panics(t, func() { RegisterFactory(memoryFactory{}) }, "duplicate registration")
}
