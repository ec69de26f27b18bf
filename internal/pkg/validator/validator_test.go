package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fieldwork/internal/pkg/apperror"
)

type sample struct {
	Name     string `validate:"required"`
	Quantity int    `validate:"gt=0"`
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(sample{Name: "Genset", Quantity: 1}))

	err := Check(sample{})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, "Name (required), Quantity (gt)", apperror.Message(err))
}
