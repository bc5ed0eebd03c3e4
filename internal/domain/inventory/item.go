package inventory

import (
	"fmt"
	"strings"

	"invkeeper/internal/domain/sync"
)

// Item - предмет инвентаря
type Item struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Status        ItemStatus `json:"status"`
	SellingPrice  float64    `json:"sellingPrice,omitempty"`
	PurchasePrice float64    `json:"purchasePrice,omitempty"`
	QRCode        string     `json:"qrCode,omitempty"`
	Number        string     `json:"number,omitempty"`
	CategoryID    string     `json:"categoryId,omitempty"`
	ContainerID   string     `json:"containerId,omitempty"`
	LocationID    string     `json:"locationId,omitempty"`
	ImageURLs     []string   `json:"imageUrls,omitempty"`
	Timestamps
}

func (i *Item) GetEntity() sync.EntityType {
	return sync.EntityItem
}

func (i *Item) GetID() string {
	return i.ID
}

func (i *Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if i.Status != "" {
		if err := i.Status.Validate(); err != nil {
			return err
		}
	}
	if i.SellingPrice < 0 {
		return fmt.Errorf("sellingPrice must not be negative")
	}
	if i.PurchasePrice < 0 {
		return fmt.Errorf("purchasePrice must not be negative")
	}
	return nil
}

func (i *Item) ToMap() map[string]any {
	m := map[string]any{
		"name":   i.Name,
		"status": string(i.Status),
	}
	if i.Description != "" {
		m["description"] = i.Description
	}
	if i.SellingPrice != 0 {
		m["sellingPrice"] = i.SellingPrice
	}
	if i.PurchasePrice != 0 {
		m["purchasePrice"] = i.PurchasePrice
	}
	if i.QRCode != "" {
		m["qrCode"] = i.QRCode
	}
	if i.Number != "" {
		m["number"] = i.Number
	}
	if i.CategoryID != "" {
		m["categoryId"] = i.CategoryID
	}
	if i.ContainerID != "" {
		m["containerId"] = i.ContainerID
	}
	if i.LocationID != "" {
		m["locationId"] = i.LocationID
	}
	if len(i.ImageURLs) > 0 {
		m["imageUrls"] = i.ImageURLs
	}
	return m
}

func (i *Item) FromMap(data map[string]any) error {
	i.Name = mapString(data, "name")
	i.Description = mapString(data, "description")
	i.Status = ItemStatus(mapString(data, "status"))
	i.SellingPrice = mapFloat(data, "sellingPrice")
	i.PurchasePrice = mapFloat(data, "purchasePrice")
	i.QRCode = mapString(data, "qrCode")
	i.Number = mapString(data, "number")
	i.CategoryID = mapString(data, "categoryId")
	i.ContainerID = mapString(data, "containerId")
	i.LocationID = mapString(data, "locationId")
	i.ImageURLs = mapStrings(data, "imageUrls")
	i.CreatedAt = mapTime(data, "createdAt")
	i.UpdatedAt = mapTime(data, "updatedAt")
	return nil
}
