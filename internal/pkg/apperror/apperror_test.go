package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	err := fmt.Errorf("%w: cannot reduce total stock below currently borrowed amount (4)", ErrBelowBorrowed)
	assert.Equal(t, ErrBelowBorrowed, Kind(err))
	assert.Nil(t, Kind(errors.New("boom")))
}

func TestInternalKeepsExistingKind(t *testing.T) {
	err := fmt.Errorf("%w: job 7", ErrNotFound)
	assert.Same(t, err, Internal(err))

	wrapped := Internal(errors.New("disk full"))
	assert.ErrorIs(t, wrapped, ErrInternal)
	assert.Nil(t, Internal(nil))
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("%w: cannot reduce total stock below currently borrowed amount (4)", ErrBelowBorrowed)
	assert.Equal(t, "cannot reduce total stock below currently borrowed amount (4)", Message(err))
	assert.Equal(t, "forbidden", Message(ErrForbidden))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
