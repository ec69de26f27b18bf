package equipment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fieldwork/internal/pkg/apperror"
)

// Auditor receives a line for every inventory change.
type Auditor interface {
	Record(ctx context.Context, actorID int64, action, description string) error
}

// Service is the inventory surface used by supervisors. Stock movements
// caused by jobs go through the assignment engine, not through here.
type Service struct {
	db      *gorm.DB
	ledger  *Ledger
	auditor Auditor
	log     *zap.Logger
}

func NewService(db *gorm.DB, ledger *Ledger, auditor Auditor, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, ledger: ledger, auditor: auditor, log: log}
}

type CreateItemRequest struct {
	Name       string `json:"name" binding:"required,max=150"`
	TotalStock int    `json:"total_stock" binding:"min=0"`
}

type UpdateItemRequest struct {
	Name       *string `json:"name,omitempty" binding:"omitempty,max=150"`
	TotalStock *int    `json:"total_stock,omitempty"`
}

func (s *Service) CreateItem(ctx context.Context, actorID int64, req CreateItemRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperror.ErrInvalidInput)
	}
	if req.TotalStock < 0 {
		return nil, fmt.Errorf("%w: total stock must not be negative", apperror.ErrInvalidInput)
	}

	item := &Item{Name: name, TotalStock: req.TotalStock, AvailableStock: req.TotalStock}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	s.audit(ctx, actorID, "equipment.create", fmt.Sprintf("created %s with %d units", item.Name, item.TotalStock))
	return item, nil
}

// UpdateItem renames an item and/or changes its total stock.
func (s *Service) UpdateItem(ctx context.Context, actorID, itemID int64, req UpdateItemRequest) (*Item, error) {
	var item *Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.ledger.findItem(tx, itemID, true)
		if err != nil {
			return err
		}
		item = current

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: name must not be empty", apperror.ErrInvalidInput)
			}
			if err := tx.Model(&Item{}).Where("id = ?", itemID).Update("name", name).Error; err != nil {
				return err
			}
			item.Name = name
		}

		if req.TotalStock != nil {
			resized, err := s.ledger.ResizeTotal(tx, itemID, *req.TotalStock)
			if err != nil {
				return err
			}
			item = resized
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}

	s.audit(ctx, actorID, "equipment.update", fmt.Sprintf("%s now has %d total, %d available", item.Name, item.TotalStock, item.AvailableStock))
	return item, nil
}

// DeleteItem soft-deletes an item. Items with equipment still out on loan
// cannot be deleted.
func (s *Service) DeleteItem(ctx context.Context, actorID, itemID int64) error {
	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.ledger.findItem(tx, itemID, true)
		if err != nil {
			return err
		}
		if item.Borrowed() > 0 {
			return fmt.Errorf("%w: %s still has %d units on loan", apperror.ErrInvalidInput, item.Name, item.Borrowed())
		}
		name = item.Name
		return tx.Delete(&Item{}, itemID).Error
	})
	if err != nil {
		return apperror.Internal(err)
	}

	s.audit(ctx, actorID, "equipment.delete", fmt.Sprintf("deleted %s", name))
	return nil
}

func (s *Service) ListItems(ctx context.Context, search string) ([]Item, error) {
	q := s.db.WithContext(ctx).Model(&Item{})
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var items []Item
	if err := q.Order("name").Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, itemID int64) (*Item, error) {
	item, err := s.ledger.findItem(s.db.WithContext(ctx), itemID, false)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return item, nil
}

func (s *Service) Balance(ctx context.Context, itemID int64) (*Balance, error) {
	b, err := s.ledger.Reconcile(s.db.WithContext(ctx), itemID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !b.Consistent {
		s.log.Error("equipment ledger out of balance",
			zap.Int64("item_id", b.ItemID),
			zap.Int("total", b.Total),
			zap.Int("available", b.Available),
			zap.Int("outstanding", b.Outstanding),
		)
	}
	return b, nil
}

func (s *Service) audit(ctx context.Context, actorID int64, action, description string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, actorID, action, description); err != nil {
		s.log.Warn("activity log write failed", zap.String("action", action), zap.Error(err))
	}
}
