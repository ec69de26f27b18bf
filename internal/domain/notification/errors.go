package notification

import (
	"fmt"

	"fieldwork/internal/pkg/apperror"
)

var ErrNotificationNotFound = fmt.Errorf("%w: notification not found", apperror.ErrNotFound)
