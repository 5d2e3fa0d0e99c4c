package storage

import (
	"context"
	"fmt"

	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/domain/account"
	"github.com/pollsite/poll-api/internal/domain/poll"
	"github.com/pollsite/poll-api/internal/storage/memory"
	"github.com/pollsite/poll-api/internal/storage/postgres"
)

// Container exposes every repository of one storage backend
type Container interface {
	Questions() poll.QuestionRepository
	Choices() poll.ChoiceRepository
	Images() poll.ImageRepository
	Users() account.UserRepository
	Health(ctx context.Context) error
	Close() error
}

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"
	// StorageTypeMemory keeps everything in process memory
	StorageTypeMemory StorageType = "memory"
)

// Factory provides a factory pattern for creating storage containers
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// CreateContainer creates a storage container based on the configured type
func (f *Factory) CreateContainer(cfg *config.Config) (Container, error) {
	switch f.storageType {
	case StorageTypePostgres:
		container, err := postgres.NewContainer(cfg)
		if err != nil {
			return nil, err
		}
		return container, nil
	case StorageTypeMemory:
		return memory.NewContainer(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypePostgres,
		StorageTypeMemory,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}

// FactoryFromConfig returns a factory for the configured storage type
func FactoryFromConfig(cfg *config.Config) (*Factory, error) {
	st, err := ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		return nil, err
	}
	return NewFactory(st), nil
}
