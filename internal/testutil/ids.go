package testutil

// FixedIDGenerator returns the same ID every time. Useful when a test
// creates exactly one reservation and wants a golden-stable ID.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id, or "test-id" when
// id is empty.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-id"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
