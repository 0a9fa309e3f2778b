package fsops

// Deleter abstracts filesystem delete operations
// Enables recording deletions in dry-run mode and in tests
type Deleter interface {
	Remove(path string) error
	RemoveAll(path string) error
}
