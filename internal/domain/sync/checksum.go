package sync

import (
	"fmt"
	"hash/fnv"
	"sort"
	"time"
)

// ChecksumPair пара id:updated_at одной записи
type ChecksumPair struct {
	ID        string
	UpdatedAt time.Time
}

// Checksum дешевая контрольная сумма состояния сущности: fnv64a по
// отсортированным парам id:updated_at. Клиент и сервер считают ее
// одинаково; расхождение означает дрейф чекпоинта.
func Checksum(pairs []ChecksumPair) string {
	sorted := make([]ChecksumPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := fnv.New64a()
	for _, p := range sorted {
		fmt.Fprintf(h, "%s:%d;", p.ID, p.UpdatedAt.UnixNano())
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
