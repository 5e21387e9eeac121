package backend

import (
	"context"
	"fmt"

	"github.com/Dan9191/finsight/internal/models"
)

// Categories returns spending totals per category
func (c *Client) Categories(ctx context.Context) ([]models.CategoryTotal, error) {
	var res []models.CategoryTotal
	if err := c.getJSON(ctx, "categories", "/api/analytics/categories", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Cashflow returns monthly income and expenses
func (c *Client) Cashflow(ctx context.Context) ([]models.CashflowMonth, error) {
	var res []models.CashflowMonth
	if err := c.getJSON(ctx, "cashflow", "/api/analytics/cashflow", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Score returns the financial confidence score
func (c *Client) Score(ctx context.Context) (*models.Score, error) {
	var res models.Score
	if err := c.getJSON(ctx, "score", "/api/score", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// NetWorth returns net worth over time starting from initial
func (c *Client) NetWorth(ctx context.Context, initial float64) (*models.NetWorth, error) {
	var res models.NetWorth
	path := fmt.Sprintf("/api/analytics/networth?initial=%g", initial)
	if err := c.getJSON(ctx, "networth", path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
