package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// upsert runs save in a transaction. When id is empty a new identifier and
// creation time are assigned; otherwise exists must find the current record
// and report its creation time.
func (s *Service) upsert(
	ctx context.Context,
	op string,
	id *string,
	createdAt *time.Time,
	exists func(ctx context.Context, tx repository.Tx) (time.Time, error),
	save func(ctx context.Context, tx repository.Tx) error,
) (err error) {
	defer func() { s.observe(op, err) }()

	isNew := *id == ""
	if isNew {
		*id = s.newID()
		*createdAt = s.timestamp()
	}
	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if !isNew {
			created, err := exists(ctx, tx)
			if err != nil {
				return err
			}
			*createdAt = created
		}
		return save(ctx, tx)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("master record saved", zap.String("op", op), zap.String("id", *id))
	return nil
}

func (s *Service) remove(ctx context.Context, op, id string, del func(ctx context.Context, tx repository.Tx) error) (err error) {
	defer func() { s.observe(op, err) }()

	err = s.store.RunInTransaction(ctx, del)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	s.logger.Info("master record deleted", zap.String("op", op), zap.String("id", id))
	return nil
}

// SaveFarmer creates the farmer when ID is empty and replaces it otherwise.
func (s *Service) SaveFarmer(ctx context.Context, f models.Farmer) (models.Farmer, error) {
	f.AuctionName = strings.TrimSpace(f.AuctionName)
	if f.AuctionName == "" {
		return models.Farmer{}, invalid("auction_name", "is required")
	}
	err := s.upsert(ctx, "save_farmer", &f.ID, &f.CreatedAt,
		func(ctx context.Context, tx repository.Tx) (time.Time, error) {
			cur, err := tx.GetFarmer(ctx, f.ID)
			return cur.CreatedAt, err
		},
		func(ctx context.Context, tx repository.Tx) error { return tx.SaveFarmer(ctx, f) })
	if err != nil {
		return models.Farmer{}, err
	}
	return f, nil
}

func (s *Service) GetFarmer(ctx context.Context, id string) (models.Farmer, error) {
	return s.store.GetFarmer(ctx, id)
}

func (s *Service) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	return s.store.ListFarmers(ctx)
}

// DeleteFarmer fails while any lot references the farmer.
func (s *Service) DeleteFarmer(ctx context.Context, id string) error {
	return s.remove(ctx, "delete_farmer", id, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteFarmer(ctx, id)
	})
}

// SaveCustomer creates the customer when ID is empty and replaces it otherwise.
func (s *Service) SaveCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	if c.CompanyName == "" {
		return models.Customer{}, invalid("company_name", "is required")
	}
	err := s.upsert(ctx, "save_customer", &c.ID, &c.CreatedAt,
		func(ctx context.Context, tx repository.Tx) (time.Time, error) {
			cur, err := tx.GetCustomer(ctx, c.ID)
			return cur.CreatedAt, err
		},
		func(ctx context.Context, tx repository.Tx) error { return tx.SaveCustomer(ctx, c) })
	if err != nil {
		return models.Customer{}, err
	}
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx)
}

// DeleteCustomer fails while any sales order references the customer.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.remove(ctx, "delete_customer", id, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteCustomer(ctx, id)
	})
}

// SaveProduct creates the product when ID is empty and replaces it otherwise.
func (s *Service) SaveProduct(ctx context.Context, p models.Product) (models.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Product{}, invalid("name", "is required")
	}
	err := s.upsert(ctx, "save_product", &p.ID, &p.CreatedAt,
		func(ctx context.Context, tx repository.Tx) (time.Time, error) {
			cur, err := tx.GetProduct(ctx, p.ID)
			return cur.CreatedAt, err
		},
		func(ctx context.Context, tx repository.Tx) error { return tx.SaveProduct(ctx, p) })
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.remove(ctx, "delete_product", id, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteProduct(ctx, id)
	})
}

// SaveWarehouse creates the warehouse when ID is empty and replaces it otherwise.
func (s *Service) SaveWarehouse(ctx context.Context, w models.Warehouse) (models.Warehouse, error) {
	w.Name = strings.TrimSpace(w.Name)
	if w.Name == "" {
		return models.Warehouse{}, invalid("name", "is required")
	}
	err := s.upsert(ctx, "save_warehouse", &w.ID, &w.CreatedAt,
		func(ctx context.Context, tx repository.Tx) (time.Time, error) {
			cur, err := tx.GetWarehouse(ctx, w.ID)
			return cur.CreatedAt, err
		},
		func(ctx context.Context, tx repository.Tx) error { return tx.SaveWarehouse(ctx, w) })
	if err != nil {
		return models.Warehouse{}, err
	}
	return w, nil
}

func (s *Service) GetWarehouse(ctx context.Context, id string) (models.Warehouse, error) {
	return s.store.GetWarehouse(ctx, id)
}

func (s *Service) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return s.store.ListWarehouses(ctx)
}

func (s *Service) DeleteWarehouse(ctx context.Context, id string) error {
	return s.remove(ctx, "delete_warehouse", id, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteWarehouse(ctx, id)
	})
}
