// Package diff wraps r3labs/diff with a comparer that treats uuid.UUID as a
// scalar instead of walking its bytes. The web layer uses it to detect no-op
// bill updates so they skip the recompute and publish nothing.
package diff

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	odiff "github.com/r3labs/diff/v3"
)

func GetCustomDiffer() *odiff.Differ {
	ret, err := odiff.NewDiffer(odiff.CustomValueDiffers(&UUIDComparer{}))
	if err != nil {
		panic(err)
	}
	return ret
}

// Changed reports whether two values differ under the custom differ.
func Changed(a, b interface{}) (bool, error) {
	changelog, err := GetCustomDiffer().Diff(a, b)
	if err != nil {
		return false, fmt.Errorf("failed to diff values: %w", err)
	}
	return len(changelog) > 0, nil
}

type UUIDComparer struct{}

var (
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// Match checks if a field matches this custom type.
func (c UUIDComparer) Match(a, b reflect.Value) bool {
	aok := a.Kind() == uuidType.Kind() && a.Type() == uuidType
	bok := b.Kind() == uuidType.Kind() && b.Type() == uuidType
	return (aok && bok) || (a.Kind() == reflect.Invalid && bok) || (b.Kind() == reflect.Invalid && aok)
}

// Diff records whether the two UUID values differ.
func (c UUIDComparer) Diff(_ odiff.DiffType, _ odiff.DiffFunc, cl *odiff.Changelog, path []string, a reflect.Value, b reflect.Value, _ interface{}) error {
	valA := reflect.Indirect(a)
	valB := reflect.Indirect(b)

	// A nil on either side counts as an update, not a deep byte walk.
	if !valA.IsValid() || !valB.IsValid() {
		if valA.IsValid() != valB.IsValid() {
			cl.Add(odiff.UPDATE, path, a.Interface(), b.Interface())
		}
		return nil
	}

	u1 := valA.Interface().(uuid.UUID)
	u2 := valB.Interface().(uuid.UUID)

	if u1 != u2 {
		cl.Add(odiff.UPDATE, path, u1, u2)
	}
	return nil
}

// InsertParentDiffer is a no-op; uuid is a leaf value.
func (c UUIDComparer) InsertParentDiffer(_ func(path []string, a reflect.Value, b reflect.Value, p interface{}) error) {
}
