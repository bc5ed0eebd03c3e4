package inventory

import (
	"fmt"
	"strings"

	"invkeeper/internal/domain/sync"
)

// Container - контейнер (коробка, стеллаж, ящик), привязан к локации
type Container struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	QRCode      string `json:"qrCode,omitempty"`
	LocationID  string `json:"locationId,omitempty"`
	Timestamps
}

func (c *Container) GetEntity() sync.EntityType {
	return sync.EntityContainer
}

func (c *Container) GetID() string {
	return c.ID
}

func (c *Container) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func (c *Container) ToMap() map[string]any {
	m := map[string]any{"name": c.Name}
	if c.Description != "" {
		m["description"] = c.Description
	}
	if c.QRCode != "" {
		m["qrCode"] = c.QRCode
	}
	if c.LocationID != "" {
		m["locationId"] = c.LocationID
	}
	return m
}

func (c *Container) FromMap(data map[string]any) error {
	c.Name = mapString(data, "name")
	c.Description = mapString(data, "description")
	c.QRCode = mapString(data, "qrCode")
	c.LocationID = mapString(data, "locationId")
	c.CreatedAt = mapTime(data, "createdAt")
	c.UpdatedAt = mapTime(data, "updatedAt")
	return nil
}
