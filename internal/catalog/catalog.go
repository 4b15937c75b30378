// Package catalog supplies the business-data fetch functions behind the
// built-in cache warming tasks: category listings, product popularity
// rankings, quotation statistics and static configuration. The cache layer
// never sees these queries, only the fetch functions wrapping them.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quoteflow/cachecore/cache"
)

type Catalog struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// Category is one storefront category with its live product count.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"product_count"`
}

func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT c.id, c.name, c.slug, count(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id AND p.active
		GROUP BY c.id, c.name, c.slug
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

// ProductRank is one entry of the popularity ranking, ordered by how often
// the product appeared on orders in the last 30 days.
type ProductRank struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	OrderCount int    `json:"order_count"`
}

func (c *Catalog) TopProducts(ctx context.Context, limit int) ([]ProductRank, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT p.id, p.name, count(oi.id) AS order_count
		FROM products p
		JOIN order_items oi ON oi.product_id = p.id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at > now() - interval '30 days'
		GROUP BY p.id, p.name
		ORDER BY order_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []ProductRank
	for rows.Next() {
		var pr ProductRank
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.OrderCount); err != nil {
			return nil, fmt.Errorf("scan product rank: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// QuoteStats aggregates the quotation pipeline.
type QuoteStats struct {
	Open         int64   `json:"open"`
	Accepted     int64   `json:"accepted"`
	Expired      int64   `json:"expired"`
	AverageTotal float64 `json:"average_total"`
}

func (c *Catalog) QuoteStats(ctx context.Context) (QuoteStats, error) {
	var s QuoteStats
	err := c.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'open'),
			count(*) FILTER (WHERE status = 'accepted'),
			count(*) FILTER (WHERE status = 'expired'),
			coalesce(avg(total), 0)
		FROM quotations`).Scan(&s.Open, &s.Accepted, &s.Expired, &s.AverageTotal)
	if err != nil {
		return QuoteStats{}, fmt.Errorf("quote stats: %w", err)
	}
	return s, nil
}

// Settings returns the static key/value configuration table.
func (c *Catalog) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := c.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// RegisterWarmingTasks populates the registry with the built-in task set.
// Priority 1 entries are warmed at startup and kept alive by the background
// refresher; priority 3 entries only ride the periodic full warm.
func RegisterWarmingTasks(reg *cache.Registry, c *Catalog) error {
	tasks := []cache.WarmingTask{
		{
			Name:      "catalog-categories",
			Namespace: "catalog",
			Key:       "categories",
			Fetch: func(ctx context.Context) (any, error) {
				return c.Categories(ctx)
			},
			Options:  cache.Options{TTL: time.Hour, Tags: []string{"categories", "products"}},
			Priority: 1,
			Enabled:  true,
		},
		{
			Name:      "catalog-top-products",
			Namespace: "catalog",
			Key:       "top-products",
			Params:    map[string]any{"limit": 20},
			Fetch: func(ctx context.Context) (any, error) {
				return c.TopProducts(ctx, 20)
			},
			Options:  cache.Options{TTL: 30 * time.Minute, Tags: []string{"products"}},
			Priority: 1,
			Enabled:  true,
		},
		{
			Name:      "stats-quotes",
			Namespace: "stats",
			Key:       "quotes",
			Fetch: func(ctx context.Context) (any, error) {
				return c.QuoteStats(ctx)
			},
			Options: cache.Options{
				TTL:          15 * time.Minute,
				Tags:         []string{"stats"},
				Dependencies: []string{"quotations"},
			},
			Priority: 2,
			Enabled:  true,
		},
		{
			Name:      "config-settings",
			Namespace: "config",
			Key:       "settings",
			Fetch: func(ctx context.Context) (any, error) {
				return c.Settings(ctx)
			},
			Options:  cache.Options{TTL: 24 * time.Hour, Tags: []string{"config"}},
			Priority: 3,
			Enabled:  true,
		},
	}
	for _, t := range tasks {
		if err := reg.Add(t); err != nil {
			return err
		}
	}
	return nil
}
