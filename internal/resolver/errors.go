package resolver

import (
	"errors"
	"fmt"

	"github.com/flowscan/batchload"
)

// DanglingReferenceError is returned for an entity whose required relation
// points to a record that does not exist. The entity is reported as not found.
type DanglingReferenceError struct {
	Kind      string // kind of the requested entity
	ID        int64
	Relation  string // name of the broken relation
	RelatedID int64
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s %d: %s %d does not exist", e.Kind, e.ID, e.Relation, e.RelatedID)
}

func (e *DanglingReferenceError) NotFound() bool { return true }

// IsDanglingReference reports whether err is caused by a broken relation
func IsDanglingReference(err error) bool {
	var dangling *DanglingReferenceError
	return errors.As(err, &dangling)
}

var _ interface{ NotFound() bool } = (*DanglingReferenceError)(nil)

// collect indexes the found values of a LoadAll result. Missing keys are left
// out, any other error fails the whole collection.
func collect[TKey comparable, TValue any](keys []TKey, values []TValue, errs []error) (map[TKey]TValue, error) {
	index := make(map[TKey]TValue, len(keys))
	for i, k := range keys {
		if err := errs[i]; err != nil {
			if batchload.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		index[k] = values[i]
	}
	return index, nil
}
