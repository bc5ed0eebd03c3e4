package inventory

import (
	"fmt"
	"strings"

	"invkeeper/internal/domain/sync"
)

// Location - место хранения (склад, комната, полка)
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Timestamps
}

func (l *Location) GetEntity() sync.EntityType {
	return sync.EntityLocation
}

func (l *Location) GetID() string {
	return l.ID
}

func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if l.ParentID == l.ID && l.ID != "" {
		return fmt.Errorf("location cannot be its own parent")
	}
	return nil
}

func (l *Location) ToMap() map[string]any {
	m := map[string]any{"name": l.Name}
	if l.Description != "" {
		m["description"] = l.Description
	}
	if l.Address != "" {
		m["address"] = l.Address
	}
	if l.ParentID != "" {
		m["parentId"] = l.ParentID
	}
	return m
}

func (l *Location) FromMap(data map[string]any) error {
	l.Name = mapString(data, "name")
	l.Description = mapString(data, "description")
	l.Address = mapString(data, "address")
	l.ParentID = mapString(data, "parentId")
	l.CreatedAt = mapTime(data, "createdAt")
	l.UpdatedAt = mapTime(data, "updatedAt")
	return nil
}
