package ports

import "github.com/ghalamif/LineFlow/internal/domain"

// RowDecoder turns one upstream row (field code -> value) into a Sample.
type RowDecoder interface {
	Decode(row map[string]any) (domain.Sample, error)
}
