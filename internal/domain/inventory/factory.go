package inventory

import (
	"fmt"

	"invkeeper/internal/domain/sync"
)

// Factory - фабрика доменных моделей инвентаря
type Factory struct{}

// NewFactory создает новую фабрику
func NewFactory() *Factory {
	return &Factory{}
}

// Create создает пустую модель для указанной сущности
func (f *Factory) Create(entity sync.EntityType) (Model, error) {
	switch entity {
	case sync.EntityItem:
		return &Item{}, nil
	case sync.EntityCategory:
		return &Category{}, nil
	case sync.EntityContainer:
		return &Container{}, nil
	case sync.EntityLocation:
		return &Location{}, nil
	default:
		return nil, fmt.Errorf("unsupported entity type: %s", entity)
	}
}

// Parse восстанавливает модель из плоской карты полей
func (f *Factory) Parse(entity sync.EntityType, id string, data map[string]any) (Model, error) {
	model, err := f.Create(entity)
	if err != nil {
		return nil, err
	}

	if err := model.FromMap(data); err != nil {
		return nil, fmt.Errorf("failed to parse data for entity %s: %w", entity, err)
	}

	switch m := model.(type) {
	case *Item:
		m.ID = id
	case *Category:
		m.ID = id
	case *Container:
		m.ID = id
	case *Location:
		m.ID = id
	}

	return model, nil
}

// ValidateData валидирует плоскую карту полей как модель сущности
func (f *Factory) ValidateData(entity sync.EntityType, data map[string]any) error {
	model, err := f.Parse(entity, "", data)
	if err != nil {
		return err
	}

	return model.Validate()
}
