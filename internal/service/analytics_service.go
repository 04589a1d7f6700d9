package service

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TopProductsLimit is how many best sellers SalesStatistics reports
const TopProductsLimit = 5

// AnalyticsService defines the interface for sales reporting
type AnalyticsService interface {
	// SalesStatistics aggregates paid orders, restricted to one seller's
	// products when sellerID is set
	SalesStatistics(ctx context.Context, sellerID *uuid.UUID) (*domain.SalesStatistics, error)
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
	orderRepo     repository.OrderRepository
}

// NewAnalyticsService creates a new instance of AnalyticsService
func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository, orderRepo repository.OrderRepository) AnalyticsService {
	return &analyticsService{analyticsRepo: analyticsRepo, orderRepo: orderRepo}
}

func (s *analyticsService) SalesStatistics(ctx context.Context, sellerID *uuid.UUID) (*domain.SalesStatistics, error) {
	var (
		lines  []domain.SaleLine
		counts map[domain.OrderStatus]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = s.analyticsRepo.SaleLines(gctx, sellerID)
		if err != nil {
			return fmt.Errorf("failed to load sale lines: %w", err)
		}
		return nil
	})
	if sellerID == nil {
		g.Go(func() error {
			var err error
			counts, err = s.orderRepo.CountByStatus(gctx)
			if err != nil {
				return fmt.Errorf("failed to count orders: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := Aggregate(lines)
	stats.OrdersByStatus = counts
	return stats, nil
}

// Aggregate folds sale lines into sales statistics. Hours and days are taken
// in UTC. Top products are ranked by quantity sold, then revenue, then name.
func Aggregate(lines []domain.SaleLine) *domain.SalesStatistics {
	stats := &domain.SalesStatistics{
		TopProducts: []domain.ProductSalesInfo{},
		SalesByHour: make(map[int]int64),
		SalesByDay:  make(map[string]int64),
	}

	orders := make(map[uuid.UUID]struct{})
	products := make(map[uuid.UUID]*domain.ProductSalesInfo)

	for _, line := range lines {
		revenue := line.Price * line.Quantity
		stats.TotalRevenue += revenue
		orders[line.OrderID] = struct{}{}

		paidAt := line.PaidAt.UTC()
		stats.SalesByHour[paidAt.Hour()] += revenue
		stats.SalesByDay[paidAt.Format("2006-01-02")] += revenue

		p, ok := products[line.ProductID]
		if !ok {
			p = &domain.ProductSalesInfo{ProductID: line.ProductID, ProductName: line.ProductName}
			products[line.ProductID] = p
		}
		p.TotalQuantitySold += line.Quantity
		p.TotalRevenue += revenue
	}

	stats.TotalOrders = len(orders)
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / int64(stats.TotalOrders)
	}

	ranked := make([]domain.ProductSalesInfo, 0, len(products))
	for _, p := range products {
		ranked = append(ranked, *p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalQuantitySold != b.TotalQuantitySold {
			return a.TotalQuantitySold > b.TotalQuantitySold
		}
		if a.TotalRevenue != b.TotalRevenue {
			return a.TotalRevenue > b.TotalRevenue
		}
		return a.ProductName < b.ProductName
	})
	if len(ranked) > TopProductsLimit {
		ranked = ranked[:TopProductsLimit]
	}
	stats.TopProducts = ranked

	return stats
}
