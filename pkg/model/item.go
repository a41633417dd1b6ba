package model

import "time"

// Item is a listing that was found by a search
type Item struct {
	ID           uint `gorm:"primary_key"`
	SearchID     uint
	ItemID       string `gorm:"type:varchar(64)"`
	Title        string
	CurrentPrice float64
	EndTime      string
	URL          string
	ImageURL     string
	SellerName   string
	FoundAt      time.Time

	// SearchName is joined in from searches on reads
	SearchName string `gorm:"-"`
}

// TableName keeps the table name stable regardless of gorm's pluralizer
func (Item) TableName() string {
	return "results"
}
