package attachment

import (
	"reflect"

	"anoa.com/attachments/internal/entity"
)

// ComputeDiff returns the fields of patch that may be changed and differ from
// current. Unknown and immutable keys are dropped. The result is a new map;
// neither argument is modified.
func ComputeDiff(current *entity.Attachment, patch map[string]any) map[string]any {
	existing := current.MutableFields()
	diff := make(map[string]any, len(patch))
	for field, value := range patch {
		currentValue, mutable := existing[field]
		if !mutable {
			continue
		}
		if reflect.DeepEqual(currentValue, value) {
			continue
		}
		diff[field] = value
	}
	return diff
}
