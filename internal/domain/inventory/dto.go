package inventory

import (
	"time"

	"invkeeper/internal/domain/sync"
)

// EntityItem элемент списка сущностей
type EntityItem struct {
	ID        string          `json:"id"`
	Entity    sync.EntityType `json:"entity"`
	Data      map[string]any  `json:"data"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ListResponse список сущностей
type ListResponse struct {
	Entities []EntityItem `json:"entities"`
	Total    int          `json:"total"`
}

// StatsResponse счетчики по сущностям
type StatsResponse struct {
	Total    int            `json:"total"`
	ByEntity map[string]int `json:"byEntity"`
}

type listInput struct {
	Entity     string `path:"entity" enum:"item,category,container,location" doc:"Тип сущности"`
	Query      string `query:"q" doc:"Поиск по имени"`
	Status     string `query:"status" doc:"Фильтр по статусу предмета"`
	CategoryID string `query:"categoryId" doc:"Фильтр по категории"`
	LocationID string `query:"locationId" doc:"Фильтр по локации"`
	Limit      int    `query:"limit" default:"100" minimum:"1" maximum:"1000"`
	Offset     int    `query:"offset" default:"0" minimum:"0"`
}

type listOutput struct {
	Body ListResponse
}

type createInput struct {
	Entity string `path:"entity" enum:"item,category,container,location" doc:"Тип сущности"`
	Body   map[string]any
}

type entityResponse struct {
	ID      string         `json:"id,omitempty"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Version int64          `json:"version,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

type entityOutput struct {
	Body entityResponse
}

type findInput struct {
	Entity string `path:"entity" enum:"item,category,container,location" doc:"Тип сущности"`
	ID     string `path:"id" doc:"ID сущности"`
}

type findOutput struct {
	Body findResponse
}

type findResponse struct {
	Status string `json:"status"`
	Entity Model  `json:"entity,omitempty"`
	Error  string `json:"error,omitempty"`
}

type updateInput struct {
	Entity string `path:"entity" enum:"item,category,container,location" doc:"Тип сущности"`
	ID     string `path:"id" doc:"ID сущности"`
	Body   map[string]any
}

type moveInput struct {
	Entity string `path:"entity" enum:"item,container" doc:"Тип сущности"`
	ID     string `path:"id" doc:"ID сущности"`
	Body   moveRequest
}

type moveRequest struct {
	ContainerID string `json:"containerId,omitempty" doc:"Новый контейнер"`
	LocationID  string `json:"locationId,omitempty" doc:"Новая локация"`
}

type qrInput struct {
	Code string `path:"code" doc:"QR-код"`
}

type statsOutput struct {
	Body StatsResponse
}
