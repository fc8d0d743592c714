package sources

import "github.com/xhad/prove/internal/models"

// Merge concatenates per-source result lists preserving their order and drops
// studies whose (title, abstract) natural key was already seen. The first
// occurrence wins. The seen set is local to the call.
func Merge(batches ...[]models.Study) []models.Study {
	merged := []models.Study{}
	seen := make(map[string]bool)

	for _, batch := range batches {
		for _, study := range batch {
			key := study.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, study)
		}
	}

	return merged
}
