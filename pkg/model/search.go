package model

import (
	"fmt"
	"strings"
	"time"
)

// SavedSearch is a stored set of search criteria
type SavedSearch struct {
	ID          uint   `gorm:"primary_key"`
	Name        string `gorm:"type:varchar(100)"`
	Keywords    string `gorm:"type:varchar(255)"`
	MinPrice    *float64
	MaxPrice    *float64
	CategoryIDs string `gorm:"column:category_ids;type:varchar(255)"`
	PickupOnly  bool
	Active      bool
	CreatedAt   time.Time
}

// TableName keeps the table name stable regardless of gorm's pluralizer
func (SavedSearch) TableName() string {
	return "searches"
}

// Categories splits the stored category ids
func (s SavedSearch) Categories() []string {
	return SplitCategoryIDs(s.CategoryIDs)
}

// SearchSpec is the input for creating a SavedSearch
type SearchSpec struct {
	Name        string
	Keywords    string
	MinPrice    *float64
	MaxPrice    *float64
	CategoryIDs []string
	PickupOnly  bool
}

// Validate checks the criteria before they are stored
func (s SearchSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSearch)
	}
	if strings.TrimSpace(s.Keywords) == "" {
		return fmt.Errorf("%w: keywords are required", ErrInvalidSearch)
	}
	if s.MinPrice != nil && *s.MinPrice < 0 {
		return fmt.Errorf("%w: min price must not be negative", ErrInvalidSearch)
	}
	if s.MaxPrice != nil && *s.MaxPrice < 0 {
		return fmt.Errorf("%w: max price must not be negative", ErrInvalidSearch)
	}
	if s.MinPrice != nil && s.MaxPrice != nil && *s.MinPrice > *s.MaxPrice {
		return fmt.Errorf("%w: min price %v is above max price %v", ErrInvalidSearch, *s.MinPrice, *s.MaxPrice)
	}
	return nil
}

// ToSavedSearch builds the active record for these criteria
func (s SearchSpec) ToSavedSearch(createdAt time.Time) SavedSearch {
	return SavedSearch{
		Name:        strings.TrimSpace(s.Name),
		Keywords:    strings.TrimSpace(s.Keywords),
		MinPrice:    s.MinPrice,
		MaxPrice:    s.MaxPrice,
		CategoryIDs: JoinCategoryIDs(s.CategoryIDs),
		PickupOnly:  s.PickupOnly,
		Active:      true,
		CreatedAt:   createdAt,
	}
}

// SplitCategoryIDs parses a comma separated category list, dropping blanks
func SplitCategoryIDs(raw string) []string {
	ids := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// JoinCategoryIDs is the inverse of SplitCategoryIDs
func JoinCategoryIDs(ids []string) string {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if p := strings.TrimSpace(id); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ",")
}
