package equipment

import (
	"time"

	"gorm.io/gorm"
)

// Item is a stock-keeping unit of field equipment. TotalStock minus
// AvailableStock is always the sum of outstanding loan quantities.
type Item struct {
	ID             int64          `json:"id" gorm:"primaryKey"`
	Name           string         `json:"name" gorm:"size:150;not null"`
	TotalStock     int            `json:"total_stock" gorm:"not null;default:0;check:total_stock >= 0"`
	AvailableStock int            `json:"available_stock" gorm:"not null;default:0;check:available_stock >= 0 AND available_stock <= total_stock"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Item) TableName() string {
	return "equipment_items"
}

func (i Item) Borrowed() int {
	return i.TotalStock - i.AvailableStock
}

// Loan records equipment borrowed against a job. Outstanding shrinks with
// partial returns; Returned is set once it reaches zero.
type Loan struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	JobID          int64      `json:"job_id" gorm:"not null;index"`
	ItemID         int64      `json:"item_id" gorm:"not null;index"`
	BorrowerID     int64      `json:"borrower_id" gorm:"not null;index"`
	Quantity       int        `json:"quantity" gorm:"not null;check:quantity > 0"`
	Outstanding    int        `json:"outstanding" gorm:"not null;check:outstanding >= 0 AND outstanding <= quantity"`
	Returned       bool       `json:"returned" gorm:"not null;default:false;index"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`
	PickupPhotoURL string     `json:"pickup_photo_url,omitempty" gorm:"size:500"`
	ReturnPhotoURL string     `json:"return_photo_url,omitempty" gorm:"size:500"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (Loan) TableName() string {
	return "equipment_loans"
}

// Line is one requested reservation.
type Line struct {
	ItemID         int64  `json:"item_id" validate:"required"`
	Quantity       int    `json:"quantity"`
	BorrowerID     int64  `json:"borrower_id,omitempty"`
	PickupPhotoURL string `json:"pickup_photo_url,omitempty" validate:"omitempty,url"`
}

// Balance is the reconciliation view of one item.
type Balance struct {
	ItemID      int64 `json:"item_id"`
	Total       int   `json:"total_stock"`
	Available   int   `json:"available_stock"`
	Borrowed    int   `json:"borrowed"`
	Outstanding int   `json:"outstanding_on_loans"`
	Consistent  bool  `json:"consistent"`
}
