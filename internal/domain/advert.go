package domain

import "time"

// DefaultAdvertPeriod is the rental period unit used when a listing omits one.
const DefaultAdvertPeriod = "day"

// Advert is a classified listing offered for rent.
type Advert struct {
	ID          int64     `db:"id"`
	OwnerID     int64     `db:"owner_id"`
	OwnerName   string    `db:"owner_name"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       int64     `db:"price"`
	Deposit     int64     `db:"deposit"`
	Period      string    `db:"period"`
	Category    string    `db:"category"`
	Available   bool      `db:"available"`
	CreatedAt   time.Time `db:"created_at"`
}

// AdvertPatch carries the allow-listed fields of a partial update. Nil means "leave as is".
type AdvertPatch struct {
	Title       *string `validate:"omitempty,max=128"`
	Description *string `validate:"omitempty,max=512"`
	Price       *int64
	Period      *string `validate:"omitempty,max=28"`
	Deposit     *int64
	Category    *string `validate:"omitempty,max=128"`
	Available   *bool
}

// Apply copies the set fields of p onto a.
func (p AdvertPatch) Apply(a *Advert) {
	if a == nil {
		return
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Price != nil {
		a.Price = *p.Price
	}
	if p.Period != nil {
		a.Period = *p.Period
	}
	if p.Deposit != nil {
		a.Deposit = *p.Deposit
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Available != nil {
		a.Available = *p.Available
	}
}
