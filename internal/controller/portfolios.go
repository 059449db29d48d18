package controller

import (
	"context"
	"strings"

	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// PortfoliosAPI is the part of the gateway the portfolios page needs.
type PortfoliosAPI interface {
	ListPortfolios(ctx context.Context) ([]finbuddy.Portfolio, error)
	CreatePortfolio(ctx context.Context, in finbuddy.PortfolioInput) (*finbuddy.Portfolio, error)
	UpdatePortfolio(ctx context.Context, id int64, in finbuddy.PortfolioInput) (*finbuddy.Portfolio, error)
	DeletePortfolio(ctx context.Context, id int64) error
}

// Portfolios manages the portfolio cards page.
type Portfolios struct {
	page
	api    PortfoliosAPI
	navbar *Navbar

	list []finbuddy.Portfolio
}

// NewPortfolios creates the portfolios page controller. Changes to the list
// are pushed through navbar so the selector stays in sync.
func NewPortfolios(api PortfoliosAPI, navbar *Navbar, deps Deps) *Portfolios {
	p := &Portfolios{api: api, navbar: navbar}
	p.init("portfolios", deps)
	return p
}

// Load fetches every portfolio.
func (p *Portfolios) Load(ctx context.Context) error {
	t := p.begin()
	list, err := p.api.ListPortfolios(ctx)
	if err != nil {
		p.fail(t, err, "Failed to load portfolios")
		return err
	}
	p.finish(t, func() { p.list = list })
	return nil
}

// List returns the loaded portfolios.
func (p *Portfolios) List() []finbuddy.Portfolio {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]finbuddy.Portfolio(nil), p.list...)
}

func normalizeInput(in finbuddy.PortfolioInput) (finbuddy.PortfolioInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, invalid("portfolio name is required")
	}
	if in.BaseCurrency == "" {
		in.BaseCurrency = currency.Base
	}
	in.BaseCurrency = currency.Normalize(in.BaseCurrency)
	if !currency.Valid(in.BaseCurrency) {
		return in, invalid("unknown currency %q", in.BaseCurrency)
	}
	return in, nil
}

// Create adds a portfolio and makes it the active one.
func (p *Portfolios) Create(ctx context.Context, in finbuddy.PortfolioInput) (*finbuddy.Portfolio, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, p.report(err, "Failed to create portfolio")
	}

	created, err := p.api.CreatePortfolio(ctx, in)
	if err != nil {
		return nil, p.report(err, "Failed to create portfolio")
	}
	p.notify(LevelSuccess, "Portfolio created successfully")

	if err := p.navbar.ReloadPortfolios(ctx, created.ID); err != nil {
		return created, err
	}
	return created, p.Load(ctx)
}

// Update renames or re-describes a portfolio.
func (p *Portfolios) Update(ctx context.Context, id int64, in finbuddy.PortfolioInput) (*finbuddy.Portfolio, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, p.report(err, "Failed to update portfolio")
	}

	updated, err := p.api.UpdatePortfolio(ctx, id, in)
	if err != nil {
		return nil, p.report(err, "Failed to update portfolio")
	}
	p.notify(LevelSuccess, "Portfolio updated successfully")

	if err := p.navbar.ReloadPortfolios(ctx, 0); err != nil {
		return updated, err
	}
	return updated, p.Load(ctx)
}

// Delete removes a portfolio after confirmation. If it was active, the first
// remaining portfolio becomes active.
func (p *Portfolios) Delete(ctx context.Context, id int64) error {
	if !p.confirm("Are you sure you want to delete this portfolio?") {
		return ErrCancelled
	}

	if err := p.api.DeletePortfolio(ctx, id); err != nil {
		return p.report(err, "Failed to delete portfolio")
	}
	p.notify(LevelSuccess, "Portfolio deleted successfully")

	next := int64(0)
	if p.navbar.PortfolioID() == id {
		for _, pf := range p.List() {
			if pf.ID != id {
				next = pf.ID
				break
			}
		}
		p.navbar.setPortfolio(0)
	}
	if err := p.navbar.ReloadPortfolios(ctx, next); err != nil {
		return err
	}
	return p.Load(ctx)
}
