package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock returns a clock that advances one second per call
func testClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func createTestStorage(t *testing.T) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testClock()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.CloseDB() })
	return s
}

func createTestSearch(t *testing.T, s *Storage, name string) uint {
	t.Helper()
	id, err := s.CreateSearch(model.SearchSpec{Name: name, Keywords: name})
	require.NoError(t, err)
	return id
}

func testItem(id string) model.Item {
	return model.Item{
		ItemID:       id,
		Title:        "item " + id,
		CurrentPrice: 9.99,
		EndTime:      "2026-03-05T18:00:00",
		URL:          "https://shopgoodwill.com/item/" + id,
		ImageURL:     "https://img/" + id + ".jpg",
		SellerName:   "seller",
	}
}

func itemIDs(items []model.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ItemID)
	}
	return ids
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	id := createTestSearch(t, s1, "laptops")
	require.NoError(t, s1.CloseDB())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.CloseDB()

	got, err := s2.GetSearch(id)
	require.NoError(t, err)
	assert.Equal(t, "laptops", got.Name)
}

func TestCreateSearch(t *testing.T) {
	s := createTestStorage(t)
	min, max := 50.0, 500.0

	id, err := s.CreateSearch(model.SearchSpec{
		Name:        "laptops",
		Keywords:    "laptop",
		MinPrice:    &min,
		MaxPrice:    &max,
		CategoryIDs: []string{"12", "40"},
		PickupOnly:  true,
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := s.GetSearch(id)
	require.NoError(t, err)
	assert.Equal(t, "laptops", got.Name)
	assert.Equal(t, "laptop", got.Keywords)
	require.NotNil(t, got.MinPrice)
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, 50.0, *got.MinPrice)
	assert.Equal(t, 500.0, *got.MaxPrice)
	assert.Equal(t, []string{"12", "40"}, got.Categories())
	assert.True(t, got.PickupOnly)
	assert.True(t, got.Active)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateSearchWithoutPrices(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "chairs")

	got, err := s.GetSearch(id)
	require.NoError(t, err)
	assert.Nil(t, got.MinPrice)
	assert.Nil(t, got.MaxPrice)
	assert.Empty(t, got.Categories())
}

func TestCreateSearchDuplicateName(t *testing.T) {
	s := createTestStorage(t)
	createTestSearch(t, s, "laptops")

	_, err := s.CreateSearch(model.SearchSpec{Name: "laptops", Keywords: "other"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDuplicateName))

	searches, err := s.ListSearches()
	require.NoError(t, err)
	assert.Len(t, searches, 1)
}

func TestCreateSearchNameReusableAfterDelete(t *testing.T) {
	s := createTestStorage(t)
	first := createTestSearch(t, s, "laptops")

	deleted, err := s.DeleteSearch(first)
	require.NoError(t, err)
	require.True(t, deleted)

	second, err := s.CreateSearch(model.SearchSpec{Name: "laptops", Keywords: "laptop"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// a second active one is still rejected
	_, err = s.CreateSearch(model.SearchSpec{Name: "laptops", Keywords: "laptop"})
	assert.True(t, errors.Is(err, model.ErrDuplicateName))
}

func TestCreateSearchInvalid(t *testing.T) {
	s := createTestStorage(t)

	_, err := s.CreateSearch(model.SearchSpec{Name: "", Keywords: "laptop"})
	assert.True(t, errors.Is(err, model.ErrInvalidSearch))
}

func TestListSearchesNewestFirst(t *testing.T) {
	s := createTestStorage(t)
	a := createTestSearch(t, s, "a")
	b := createTestSearch(t, s, "b")
	c := createTestSearch(t, s, "c")

	_, err := s.DeleteSearch(b)
	require.NoError(t, err)

	searches, err := s.ListSearches()
	require.NoError(t, err)
	require.Len(t, searches, 2)
	assert.Equal(t, c, searches[0].ID)
	assert.Equal(t, a, searches[1].ID)
}

func TestListSearchesEmpty(t *testing.T) {
	s := createTestStorage(t)

	searches, err := s.ListSearches()
	require.NoError(t, err)
	assert.NotNil(t, searches)
	assert.Empty(t, searches)
}

func TestGetSearchNotFound(t *testing.T) {
	s := createTestStorage(t)

	_, err := s.GetSearch(42)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	id := createTestSearch(t, s, "laptops")
	_, err = s.DeleteSearch(id)
	require.NoError(t, err)

	_, err = s.GetSearch(id)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDeleteSearchIsIdempotent(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")

	deleted, err := s.DeleteSearch(id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteSearch(id)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteSearch(999)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPersistNew(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")

	persisted, err := s.PersistNew(id, []model.Item{testItem("A"), testItem("B")})
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, []string{"A", "B"}, itemIDs(persisted))
	for _, it := range persisted {
		assert.NotZero(t, it.ID)
		assert.Equal(t, id, it.SearchID)
		assert.False(t, it.FoundAt.IsZero())
	}

	known, err := s.IsKnown("A")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = s.IsKnown("Z")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestPersistNewSkipsKnownItems(t *testing.T) {
	s := createTestStorage(t)
	first := createTestSearch(t, s, "first")
	second := createTestSearch(t, s, "second")

	_, err := s.PersistNew(first, []model.Item{testItem("A")})
	require.NoError(t, err)

	// A is owned by the first search; only B is inserted
	persisted, err := s.PersistNew(second, []model.Item{testItem("A"), testItem("B")})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, itemIDs(persisted))

	items, err := s.Results(nil, 10)
	require.NoError(t, err)
	owners := map[string]uint{}
	for _, it := range items {
		owners[it.ItemID] = it.SearchID
	}
	assert.Equal(t, map[string]uint{"A": first, "B": second}, owners)
}

func TestPersistNewSkipsDuplicatesInBatch(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")

	persisted, err := s.PersistNew(id, []model.Item{testItem("A"), testItem("A"), {ItemID: ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, itemIDs(persisted))
}

func TestPersistNewRollsBackOnError(t *testing.T) {
	s := createTestStorage(t)

	// search 999 does not exist, the foreign key rejects the batch
	_, err := s.PersistNew(999, []model.Item{testItem("A"), testItem("B")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPersistence))

	known, err := s.IsKnown("A")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestPersistNewEmpty(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")

	persisted, err := s.PersistNew(id, nil)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestPersistNewConcurrentSameItems(t *testing.T) {
	s := createTestStorage(t)
	ids := []uint{createTestSearch(t, s, "one"), createTestSearch(t, s, "two"), createTestSearch(t, s, "three")}

	batch := make([]model.Item, 0, 20)
	for i := 0; i < 20; i++ {
		batch = append(batch, testItem(fmt.Sprintf("item-%d", i)))
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			persisted, err := s.PersistNew(id, batch)
			assert.NoError(t, err)
			mu.Lock()
			total += len(persisted)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	assert.Equal(t, len(batch), total)

	items, err := s.Results(nil, 100)
	require.NoError(t, err)
	assert.Len(t, items, len(batch))
}

func TestSeenLookup(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")
	_, err := s.PersistNew(id, []model.Item{testItem("A"), testItem("C")})
	require.NoError(t, err)

	known, err := s.SeenLookup([]string{"A", "B", "C"})
	require.NoError(t, err)
	assert.True(t, known.Seen("A"))
	assert.False(t, known.Seen("B"))
	assert.True(t, known.Seen("C"))

	empty, err := s.SeenLookup(nil)
	require.NoError(t, err)
	assert.False(t, empty.Seen("A"))
}

func TestSeenLookupChunks(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")

	ids := make([]string, 0, lookupChunk*2+10)
	for i := 0; i < cap(ids); i++ {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	last := ids[len(ids)-1]
	_, err := s.PersistNew(id, []model.Item{testItem(last)})
	require.NoError(t, err)

	known, err := s.SeenLookup(ids)
	require.NoError(t, err)
	assert.Len(t, known, 1)
	assert.True(t, known.Seen(last))
}

func TestResultsOrderAndFilter(t *testing.T) {
	s := createTestStorage(t)
	laptops := createTestSearch(t, s, "laptops")
	chairs := createTestSearch(t, s, "chairs")

	_, err := s.PersistNew(laptops, []model.Item{testItem("L1")})
	require.NoError(t, err)
	_, err = s.PersistNew(chairs, []model.Item{testItem("C1")})
	require.NoError(t, err)
	_, err = s.PersistNew(laptops, []model.Item{testItem("L2")})
	require.NoError(t, err)

	all, err := s.Results(nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"L2", "C1", "L1"}, itemIDs(all))
	assert.Equal(t, "laptops", all[0].SearchName)
	assert.Equal(t, "chairs", all[1].SearchName)

	onlyLaptops, err := s.Results(&laptops, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"L2", "L1"}, itemIDs(onlyLaptops))

	limited, err := s.Results(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, itemIDs(limited))

	item := onlyLaptops[1]
	assert.Equal(t, "item L1", item.Title)
	assert.Equal(t, 9.99, item.CurrentPrice)
	assert.Equal(t, "2026-03-05T18:00:00", item.EndTime)
	assert.Equal(t, "https://shopgoodwill.com/item/L1", item.URL)
	assert.Equal(t, "https://img/L1.jpg", item.ImageURL)
	assert.Equal(t, "seller", item.SellerName)
	assert.False(t, item.FoundAt.IsZero())
}

func TestResultsKeptAfterDelete(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")
	_, err := s.PersistNew(id, []model.Item{testItem("A")})
	require.NoError(t, err)

	_, err = s.DeleteSearch(id)
	require.NoError(t, err)

	items, err := s.Results(&id, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "laptops", items[0].SearchName)
}

func TestResultsDefaultLimit(t *testing.T) {
	s := createTestStorage(t)
	id := createTestSearch(t, s, "laptops")

	batch := make([]model.Item, 0, DefaultResultLimit+5)
	for i := 0; i < DefaultResultLimit+5; i++ {
		batch = append(batch, testItem(fmt.Sprintf("%03d", i)))
	}
	_, err := s.PersistNew(id, batch)
	require.NoError(t, err)

	items, err := s.Results(nil, 0)
	require.NoError(t, err)
	assert.Len(t, items, DefaultResultLimit)
}
