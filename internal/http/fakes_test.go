package http_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/price-tracker/internal/model"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/iyhunko/price-tracker/internal/scraper"
)

// store is an in-memory stand-in for the PostgreSQL repositories.
type store struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
	history  []*model.PriceHistory
	users    []*model.User
	events   []*model.Event
}

func newStore() *store {
	return &store{products: map[uuid.UUID]*model.Product{}}
}

type productRepo struct{ s *store }

func (r productRepo) Create(_ context.Context, resource repository.Resource) (repository.Resource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := resource.(*model.Product)
	if p.ID == uuid.Nil {
		p.InitMeta()
	}
	for _, existing := range r.s.products {
		if existing.URL == p.URL {
			return nil, &repository.UniqueConstraintError{Detail: "url"}
		}
	}
	copied := *p
	r.s.products[p.ID] = &copied
	return p, nil
}

func (r productRepo) List(_ context.Context, query repository.Query) ([]repository.Resource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if v, ok := query.Values[repository.IsActiveField]; ok && (v == "true") != p.IsActive {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	var out []repository.Resource
	for _, p := range all {
		if query.Paginator != nil && !p.CreatedAt.Before(query.Paginator.LastCreatedAt) {
			continue
		}
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (r productRepo) DeleteByID(_ context.Context, resource repository.Resource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := resource.(*model.Product)
	if _, ok := r.s.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, p.ID)
	kept := r.s.history[:0]
	for _, h := range r.s.history {
		if h.ProductID != p.ID {
			kept = append(kept, h)
		}
	}
	r.s.history = kept
	return nil
}

func (r productRepo) FindByID(_ context.Context, id uuid.UUID) (repository.Resource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r productRepo) Update(_ context.Context, product *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.products[product.ID]
	if !ok {
		return repository.ErrNotFound
	}
	copied := *product
	copied.CurrentPrice = stored.CurrentPrice
	r.s.products[product.ID] = &copied
	return nil
}

func (r productRepo) FindByURL(_ context.Context, url string) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.URL == url {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

type historyRepo struct{ s *store }

func (r historyRepo) Create(_ context.Context, resource repository.Resource) (repository.Resource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h := resource.(*model.PriceHistory)
	if h.ID == uuid.Nil {
		h.InitMeta()
	}
	r.s.history = append(r.s.history, h)
	return h, nil
}

func (r historyRepo) List(context.Context, repository.Query) ([]repository.Resource, error) {
	return nil, nil
}

func (r historyRepo) DeleteByID(context.Context, repository.Resource) error { return nil }

func (r historyRepo) FindByID(context.Context, uuid.UUID) (repository.Resource, error) {
	return nil, repository.ErrNotFound
}

func (r historyRepo) ListByProduct(_ context.Context, productID uuid.UUID, ascending bool) ([]*model.PriceHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.PriceHistory
	for _, h := range r.s.history {
		if h.ProductID == productID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r historyRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

type userRepo struct{ s *store }

func (r userRepo) Create(_ context.Context, resource repository.Resource) (repository.Resource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := resource.(*model.User)
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, &repository.UniqueConstraintError{Detail: "email"}
		}
	}
	u.InitMeta()
	r.s.users = append(r.s.users, u)
	return u, nil
}

func (r userRepo) List(context.Context, repository.Query) ([]repository.Resource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.Resource
	for _, u := range r.s.users {
		out = append(out, u)
	}
	return out, nil
}

func (r userRepo) DeleteByID(context.Context, repository.Resource) error { return nil }

func (r userRepo) FindByID(context.Context, uuid.UUID) (repository.Resource, error) {
	return nil, repository.ErrNotFound
}

func (r userRepo) ListActiveEmails(context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, u := range r.s.users {
		if u.IsActive {
			out = append(out, u.Email)
		}
	}
	return out, nil
}

type transactor struct{ s *store }

func (t transactor) CreateProductWithEvent(ctx context.Context, product *model.Product, history *model.PriceHistory, event *model.Event) (*model.Product, error) {
	if _, err := (productRepo{t.s}).Create(ctx, product); err != nil {
		return nil, err
	}
	if history != nil {
		history.ProductID = product.ID
		_, _ = (historyRepo{t.s}).Create(ctx, history)
	}
	t.addEvent(event)
	return product, nil
}

func (t transactor) DeleteProductWithEvent(ctx context.Context, product *model.Product, event *model.Event) error {
	if err := (productRepo{t.s}).DeleteByID(ctx, product); err != nil {
		return err
	}
	t.addEvent(event)
	return nil
}

func (t transactor) RecordPriceCheck(ctx context.Context, productID uuid.UUID, history *model.PriceHistory, eventFor repository.PriceCheckEventFunc) (*model.Product, error) {
	t.s.mu.Lock()
	stored, ok := t.s.products[productID]
	if !ok {
		t.s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	current := *stored
	t.s.mu.Unlock()

	event, err := eventFor(&current, history.Price)
	if err != nil {
		return nil, err
	}

	t.s.mu.Lock()
	price := history.Price
	stored.CurrentPrice = &price
	stored.Touch()
	updated := *stored
	t.s.mu.Unlock()

	history.ProductID = productID
	_, _ = (historyRepo{t.s}).Create(ctx, history)
	if event != nil {
		t.addEvent(event)
	}
	return &updated, nil
}

func (t transactor) addEvent(event *model.Event) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	event.InitMeta()
	t.s.events = append(t.s.events, event)
}

// scraperFunc adapts a function to service.Scraper.
type scraperFunc func(ctx context.Context, pageURL string) (*scraper.Result, error)

func (f scraperFunc) Scrape(ctx context.Context, pageURL string) (*scraper.Result, error) {
	return f(ctx, pageURL)
}
