package inventory

import (
	"errors"
)

var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidData     = errors.New("invalid entity data")
	ErrDuplicateQRCode = errors.New("qr code already assigned")
	ErrEntityDeleted   = errors.New("entity was deleted")
)
