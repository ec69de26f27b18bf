package equipment

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldwork/internal/pkg/apperror"
)

// Ledger owns every mutation of equipment stock. Its methods take the
// caller's transaction so a reservation or return commits together with the
// job change that caused it. Stock counters are only ever changed through
// conditional UPDATE statements, so the availability check and the change
// are one atomic step.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Reserve takes line.Quantity units of an item for a job.
func (l *Ledger) Reserve(tx *gorm.DB, jobID, borrowerID int64, line Line) (*Loan, error) {
	if line.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", apperror.ErrInvalidQuantity)
	}

	item, err := l.findItem(tx, line.ItemID, false)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&Item{}).
		Where("id = ? AND available_stock >= ?", item.ID, line.Quantity).
		Updates(map[string]any{
			"available_stock": gorm.Expr("available_stock - ?", line.Quantity),
			"updated_at":      l.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := l.findItem(tx, line.ItemID, false)
		if err != nil {
			return nil, err
		}
		return nil, insufficientStock(current, line.Quantity, current.AvailableStock)
	}

	loan := &Loan{
		JobID:          jobID,
		ItemID:         item.ID,
		BorrowerID:     borrowerID,
		Quantity:       line.Quantity,
		Outstanding:    line.Quantity,
		PickupPhotoURL: line.PickupPhotoURL,
	}
	if err := tx.Create(loan).Error; err != nil {
		return nil, err
	}
	item.AvailableStock -= line.Quantity
	loan.Item = item
	return loan, nil
}

// ReserveBatch reserves all lines or none. When a line fails, the lines
// already reserved are released again before the error is returned.
func (l *Ledger) ReserveBatch(tx *gorm.DB, jobID, defaultBorrower int64, lines []Line) ([]Loan, error) {
	loans := make([]Loan, 0, len(lines))
	for _, line := range lines {
		borrower := line.BorrowerID
		if borrower == 0 {
			borrower = defaultBorrower
		}

		loan, err := l.Reserve(tx, jobID, borrower, line)
		if err != nil {
			if cerr := l.release(tx, loans); cerr != nil {
				return nil, errors.Join(err, fmt.Errorf("release reserved equipment: %w", cerr))
			}
			return nil, err
		}
		loans = append(loans, *loan)
	}
	return loans, nil
}

// release undoes reservations made earlier in the same batch.
func (l *Ledger) release(tx *gorm.DB, loans []Loan) error {
	for i := len(loans) - 1; i >= 0; i-- {
		if err := l.credit(tx, loans[i].ItemID, loans[i].Outstanding); err != nil {
			return err
		}
		if err := tx.Delete(&Loan{}, loans[i].ID).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReturnPartial gives back qty units of a loan. The loan closes when
// nothing is outstanding any more.
func (l *Ledger) ReturnPartial(tx *gorm.DB, loanID int64, qty int, photoURL string) (*Loan, error) {
	loan, err := l.lockLoan(tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Returned {
		return nil, fmt.Errorf("%w: loan %d", apperror.ErrAlreadyFullyReturned, loan.ID)
	}
	if qty <= 0 || qty > loan.Outstanding {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", apperror.ErrInvalidQuantity, loan.Outstanding)
	}

	now := l.now()
	updates := map[string]any{
		"outstanding": gorm.Expr("outstanding - ?", qty),
		"updated_at":  now,
	}
	if photoURL != "" {
		updates["return_photo_url"] = photoURL
	}
	closing := qty == loan.Outstanding
	if closing {
		updates["returned"] = true
		updates["returned_at"] = now
	}

	res := tx.Model(&Loan{}).
		Where("id = ? AND returned = ? AND outstanding >= ?", loan.ID, false, qty).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: loan %d changed while returning", apperror.ErrInvalidQuantity, loan.ID)
	}

	if err := l.credit(tx, loan.ItemID, qty); err != nil {
		return nil, err
	}

	return l.lockLoan(tx, loan.ID)
}

// ForceReturnAllOutstanding closes every open loan of a job without a
// return photo. It returns the number of loans closed.
func (l *Ledger) ForceReturnAllOutstanding(tx *gorm.DB, jobID int64) (int, error) {
	var open []Loan
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("job_id = ? AND returned = ?", jobID, false).
		Order("id").
		Find(&open).Error
	if err != nil {
		return 0, err
	}

	now := l.now()
	for _, loan := range open {
		res := tx.Model(&Loan{}).
			Where("id = ? AND returned = ?", loan.ID, false).
			Updates(map[string]any{
				"outstanding": 0,
				"returned":    true,
				"returned_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		if err := l.credit(tx, loan.ItemID, loan.Outstanding); err != nil {
			return 0, err
		}
	}
	return len(open), nil
}

// ResizeTotal sets a new total stock while keeping the borrowed amount.
func (l *Ledger) ResizeTotal(tx *gorm.DB, itemID int64, newTotal int) (*Item, error) {
	if newTotal < 0 {
		return nil, fmt.Errorf("%w: total stock must not be negative", apperror.ErrInvalidInput)
	}
	if _, err := l.findItem(tx, itemID, true); err != nil {
		return nil, err
	}

	// SET expressions read the pre-update row, so borrowed is preserved.
	res := tx.Model(&Item{}).
		Where("id = ? AND total_stock - available_stock <= ?", itemID, newTotal).
		Updates(map[string]any{
			"available_stock": gorm.Expr("? - (total_stock - available_stock)", newTotal),
			"total_stock":     newTotal,
			"updated_at":      l.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	item, err := l.findItem(tx, itemID, false)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, belowBorrowed(item.Borrowed())
	}
	return item, nil
}

// Reconcile compares the item counters with its open loans.
func (l *Ledger) Reconcile(tx *gorm.DB, itemID int64) (*Balance, error) {
	var item Item
	if err := tx.Unscoped().First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	var outstanding int64
	err := tx.Model(&Loan{}).
		Select("COALESCE(SUM(outstanding), 0)").
		Where("item_id = ? AND returned = ?", itemID, false).
		Scan(&outstanding).Error
	if err != nil {
		return nil, err
	}

	b := &Balance{
		ItemID:      item.ID,
		Total:       item.TotalStock,
		Available:   item.AvailableStock,
		Borrowed:    item.Borrowed(),
		Outstanding: int(outstanding),
	}
	b.Consistent = b.Available >= 0 && b.Available <= b.Total && b.Borrowed == b.Outstanding
	return b, nil
}

// credit puts qty units back. Soft-deleted items are still credited so a
// late return never strands stock.
func (l *Ledger) credit(tx *gorm.DB, itemID int64, qty int) error {
	if qty == 0 {
		return nil
	}
	res := tx.Unscoped().Model(&Item{}).
		Where("id = ? AND available_stock + ? <= total_stock", itemID, qty).
		Updates(map[string]any{
			"available_stock": gorm.Expr("available_stock + ?", qty),
			"updated_at":      l.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: crediting %d units would exceed total stock of item %d", apperror.ErrInternal, qty, itemID)
	}
	return nil
}

func (l *Ledger) findItem(tx *gorm.DB, id int64, lock bool) (*Item, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item Item
	if err := q.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w (id %d)", ErrItemNotFound, id)
		}
		return nil, err
	}
	return &item, nil
}

func (l *Ledger) lockLoan(tx *gorm.DB, id int64) (*Loan, error) {
	var loan Loan
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w (id %d)", ErrLoanNotFound, id)
		}
		return nil, err
	}
	return &loan, nil
}
