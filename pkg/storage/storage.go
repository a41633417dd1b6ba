package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/jinzhu/gorm"
	"github.com/mattn/go-sqlite3"

	// import for the database driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DefaultResultLimit is used when Results is called without a positive limit
const DefaultResultLimit = 50

// sqlite allows 999 bound variables on older builds
const lookupChunk = 500

// Storage is the main storage medium. It holds the saved searches and every
// item that was ever found; the results table is also the record of which
// marketplace ids have been seen.
type Storage struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Storage
type Option func(*Storage)

// WithClock overrides the clock used for created_at and found_at
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// Open opens (and creates if needed) the sqlite database at path
func Open(path string, opts ...Option) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.LogMode(false)

	// sqlite has a single writer; one connection avoids SQLITE_BUSY and keeps
	// pragmas on the connection that is actually used
	db.DB().SetMaxOpenConns(1)
	db.DB().SetMaxIdleConns(1)

	if err := db.Exec(schemaSQL).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Storage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CloseDB closes the created db connection
func (s *Storage) CloseDB() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateSearch stores a new active search and returns its id
func (s *Storage) CreateSearch(spec model.SearchSpec) (uint, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	search := spec.ToSavedSearch(s.now().UTC())

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int
		if err := tx.Model(&model.SavedSearch{}).Where("name = ? AND active = ?", search.Name, true).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %q", model.ErrDuplicateName, search.Name)
		}

		if err := tx.Create(&search).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %q", model.ErrDuplicateName, search.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateName) {
			return 0, err
		}
		return 0, persistenceError("create search", err)
	}

	return search.ID, nil
}

// ListSearches gets all active searches, newest first
func (s *Storage) ListSearches() ([]model.SavedSearch, error) {
	searches := make([]model.SavedSearch, 0)
	err := s.db.Where("active = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&searches).Error
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	return searches, nil
}

// GetSearch finds an active search by id
func (s *Storage) GetSearch(id uint) (*model.SavedSearch, error) {
	search := model.SavedSearch{}
	err := s.db.Where("id = ? AND active = ?", id, true).First(&search).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("%w: id %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get search %d: %w", id, err)
	}
	return &search, nil
}

// DeleteSearch deactivates a search. The row and its results stay in place.
// Returns false if the search was unknown or already inactive.
func (s *Storage) DeleteSearch(id uint) (bool, error) {
	res := s.db.Model(&model.SavedSearch{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return false, persistenceError("delete search", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PersistNew inserts the items for a search in one transaction. Items whose
// marketplace id is already stored are skipped; only the rows that were
// actually inserted are returned, in input order.
func (s *Storage) PersistNew(searchID uint, items []model.Item) ([]model.Item, error) {
	inserted := make([]model.Item, 0, len(items))
	if len(items) == 0 {
		return inserted, nil
	}

	foundAt := s.now().UTC()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if item.ItemID == "" {
				continue
			}
			row := item
			row.ID = 0
			row.SearchID = searchID
			row.SearchName = ""
			if row.FoundAt.IsZero() {
				row.FoundAt = foundAt
			}

			res := tx.Set("gorm:insert_option", "ON CONFLICT(item_id) DO NOTHING").Create(&row)
			if res.Error != nil {
				return fmt.Errorf("insert item %s: %w", row.ItemID, res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}

			row.SearchName = item.SearchName
			inserted = append(inserted, row)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("persist items", err)
	}

	return inserted, nil
}

// IsKnown reports whether the marketplace id has been stored before
func (s *Storage) IsKnown(itemID string) (bool, error) {
	var count int
	if err := s.db.Model(&model.Item{}).Where("item_id = ?", itemID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup item %s: %w", itemID, err)
	}
	return count > 0, nil
}

// KnownIDs is a set of marketplace ids that are already stored
type KnownIDs map[string]bool

// Seen reports whether id is in the set
func (k KnownIDs) Seen(id string) bool {
	return k[id]
}

// SeenLookup returns the subset of ids that are already stored
func (s *Storage) SeenLookup(ids []string) (KnownIDs, error) {
	known := KnownIDs{}
	for start := 0; start < len(ids); start += lookupChunk {
		end := start + lookupChunk
		if end > len(ids) {
			end = len(ids)
		}

		var found []string
		err := s.db.Model(&model.Item{}).
			Where("item_id IN (?)", ids[start:end]).
			Pluck("item_id", &found).Error
		if err != nil {
			return nil, fmt.Errorf("lookup items: %w", err)
		}
		for _, id := range found {
			known[id] = true
		}
	}
	return known, nil
}

// Results returns stored items newest first. A nil searchID returns items of
// all searches, including deactivated ones.
func (s *Storage) Results(searchID *uint, limit int) ([]model.Item, error) {
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	query := `
		SELECT r.id, r.search_id, r.item_id, r.title, r.current_price, r.end_time,
		       r.url, r.image_url, r.seller_name, r.found_at, s.name
		FROM results r
		JOIN searches s ON r.search_id = s.id`
	args := make([]interface{}, 0, 2)
	if searchID != nil {
		query += " WHERE r.search_id = ?"
		args = append(args, *searchID)
	}
	query += " ORDER BY r.found_at DESC, r.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(
			&item.ID,
			&item.SearchID,
			&item.ItemID,
			&item.Title,
			&item.CurrentPrice,
			&item.EndTime,
			&item.URL,
			&item.ImageURL,
			&item.SellerName,
			&item.FoundAt,
			&item.SearchName,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}

	return items, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
