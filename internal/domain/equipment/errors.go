package equipment

import (
	"fmt"

	"fieldwork/internal/pkg/apperror"
)

var (
	ErrItemNotFound = fmt.Errorf("%w: equipment item not found", apperror.ErrNotFound)
	ErrLoanNotFound = fmt.Errorf("%w: equipment loan not found", apperror.ErrNotFound)
)

func insufficientStock(item *Item, requested, available int) error {
	return fmt.Errorf("%w: %s has %d available, %d requested", apperror.ErrInsufficientStock, item.Name, available, requested)
}

func belowBorrowed(borrowed int) error {
	return fmt.Errorf("%w: cannot reduce total stock below currently borrowed amount (%d)", apperror.ErrBelowBorrowed, borrowed)
}
