package vectorstore

import "fmt"

// DimensionError reports a vector whose length does not match the store's
// configured dimension.
type DimensionError struct {
	ChunkID string
	Got     int
	Want    int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vectorstore: chunk %s dimension mismatch: got %d, want %d", e.ChunkID, e.Got, e.Want)
}
