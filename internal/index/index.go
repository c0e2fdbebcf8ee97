package index

// EntryIndex defines the catalog operations over archived entries.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type EntryIndex interface {
	UpsertEntry(e EntryRow, body string) error
	DeleteEntry(path string) error
	GetChecksum(path string) (string, error)
	GetEntry(id string) (*EntryRow, error)
	ListEntries(limit, offset int, tag string) ([]EntryRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
