package domain

import (
	"time"

	"github.com/google/uuid"
)

// SaleLine is one paid order item, the unit of sales aggregation
type SaleLine struct {
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	Price       int64
	PaidAt      time.Time
}

// SalesStatistics aggregates paid orders
type SalesStatistics struct {
	TotalRevenue      int64               `json:"total_revenue"`
	TotalOrders       int                 `json:"total_orders"`
	AverageOrderValue int64               `json:"average_order_value"`
	TopProducts       []ProductSalesInfo  `json:"top_products"`
	SalesByHour       map[int]int64       `json:"sales_by_hour"`
	SalesByDay        map[string]int64    `json:"sales_by_day"`
	OrdersByStatus    map[OrderStatus]int `json:"orders_by_status,omitempty"`
}

// ProductSalesInfo is the per-product sales rollup
type ProductSalesInfo struct {
	ProductID         uuid.UUID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	TotalQuantitySold int64     `json:"total_quantity_sold"`
	TotalRevenue      int64     `json:"total_revenue"`
}
