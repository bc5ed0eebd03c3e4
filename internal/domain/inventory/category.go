package inventory

import (
	"fmt"
	"regexp"
	"strings"

	"invkeeper/internal/domain/sync"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category - категория предметов
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Color       string `json:"color,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Timestamps
}

func (c *Category) GetEntity() sync.EntityType {
	return sync.EntityCategory
}

func (c *Category) GetID() string {
	return c.ID
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return fmt.Errorf("color must be a hex value like #ff8800")
	}
	if c.ParentID == c.ID && c.ID != "" {
		return fmt.Errorf("category cannot be its own parent")
	}
	return nil
}

func (c *Category) ToMap() map[string]any {
	m := map[string]any{"name": c.Name}
	if c.Description != "" {
		m["description"] = c.Description
	}
	if c.Icon != "" {
		m["icon"] = c.Icon
	}
	if c.Color != "" {
		m["color"] = c.Color
	}
	if c.ParentID != "" {
		m["parentId"] = c.ParentID
	}
	return m
}

func (c *Category) FromMap(data map[string]any) error {
	c.Name = mapString(data, "name")
	c.Description = mapString(data, "description")
	c.Icon = mapString(data, "icon")
	c.Color = mapString(data, "color")
	c.ParentID = mapString(data, "parentId")
	c.CreatedAt = mapTime(data, "createdAt")
	c.UpdatedAt = mapTime(data, "updatedAt")
	return nil
}
