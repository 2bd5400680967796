package badger

import (
	"fmt"
	"strings"

	"github.com/poiesic/lorekeeper/storage"
)

// Key prefixes for different data types
const (
	collectionPrefix = "col"
	pointPrefix      = "pt"
)

// validateCollectionName rejects names that would break the key layout.
func validateCollectionName(name string) error {
	if name == "" || strings.ContainsAny(name, ":\x00") {
		return fmt.Errorf("%w: invalid collection name %q", storage.ErrInvalidQuery, name)
	}
	return nil
}

// makeCollectionKey generates the key holding a collection's description.
func makeCollectionKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionPrefix, name))
}

// makePointPrefix generates the key prefix shared by all points in a collection.
// Format: prefix:collection:
func makePointPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", pointPrefix, collection))
}

// makePointKey generates a key for a point by collection and ID.
// Keys sort by ID within a collection, which gives scroll its order.
func makePointKey(collection, id string) []byte {
	prefix := makePointPrefix(collection)
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}
