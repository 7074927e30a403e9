package store

import (
	"fmt"
	"sync"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// Factory is the Strategy interface for creating definition store backends.
// Each backend (memory, MySQL, DynamoDB) implements this interface to
// provide its own construction and validation.
type Factory interface {
	// Create creates a new store instance from the provided configuration.
	Create(config BackendConfig) (core.DefinitionStore, error)

	// Type returns the type identifier for this factory
	// (e.g., "memory", "mysql", "dynamodb").
	Type() string

	// Validate validates the configuration specific to this backend.
	Validate(config BackendConfig) error
}

// BackendConfig carries the configuration needed to create a store backend.
type BackendConfig struct {
	Type string

	// MySQL-specific: a shared connection pool supplied by the caller.
	// The pool's lifetime is owned by the executor, not the store.
	MySQL *MySQLStore

	// DynamoDB-specific fields.
	Region           string
	DefinitionsTable string
	SamplesTable     string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
}

var (
	factoryRegistry = make(map[string]Factory)
	registryMutex   sync.RWMutex
)

// RegisterFactory registers a store factory. This is called automatically
// by each backend's init() function. Panics on nil factories, empty types
// and duplicate registrations, all of which are programming errors.
func RegisterFactory(factory Factory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

// Create creates a store instance using the factory registered for config.Type.
func Create(config BackendConfig) (core.DefinitionStore, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("store type is required")
	}

	registryMutex.RLock()
	factory, exists := factoryRegistry[config.Type]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
	if err := factory.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Type, err)
	}
	return factory.Create(config)
}

// RegisteredTypes returns all registered backend type identifiers.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	return types
}

// memoryFactory creates in-memory stores.
type memoryFactory struct{}

func (memoryFactory) Type() string { return "memory" }

func (memoryFactory) Validate(BackendConfig) error { return nil }

func (memoryFactory) Create(BackendConfig) (core.DefinitionStore, error) {
	return NewMemoryStore(), nil
}

// mysqlFactory wraps a caller-supplied MySQL store.
type mysqlFactory struct{}

func (mysqlFactory) Type() string { return "mysql" }

func (mysqlFactory) Validate(config BackendConfig) error {
	if config.MySQL == nil {
		return fmt.Errorf("mysql backend requires a connection pool")
	}
	return nil
}

func (mysqlFactory) Create(config BackendConfig) (core.DefinitionStore, error) {
	return config.MySQL, nil
}

// dynamodbFactory creates DynamoDB stores.
type dynamodbFactory struct{}

func (dynamodbFactory) Type() string { return "dynamodb" }

func (dynamodbFactory) Validate(config BackendConfig) error {
	if config.Region == "" {
		return fmt.Errorf("dynamodb backend requires a region")
	}
	if config.DefinitionsTable == "" || config.SamplesTable == "" {
		return fmt.Errorf("dynamodb backend requires definitions and samples table names")
	}
	return nil
}

func (dynamodbFactory) Create(config BackendConfig) (core.DefinitionStore, error) {
	return NewDynamoDBStore(DynamoDBStoreConfig{
		Region:           config.Region,
		DefinitionsTable: config.DefinitionsTable,
		SamplesTable:     config.SamplesTable,
		Endpoint:         config.Endpoint,
		AccessKeyID:      config.AccessKeyID,
		SecretAccessKey:  config.SecretAccessKey,
	})
}

func init() {
	RegisterFactory(memoryFactory{})
	RegisterFactory(mysqlFactory{})
	RegisterFactory(dynamodbFactory{})
}
