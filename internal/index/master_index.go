package index

import (
	"github.com/skyline93/rscache/internal/errors"
)

// MasterIndex is the collection of all indices of a store.
type MasterIndex struct {
	idx [256]*Index
}

// NewMasterIndex creates a new master index.
func NewMasterIndex() *MasterIndex {
	return &MasterIndex{}
}

// Insert adds a finalized index, replacing one with the same id.
func (mi *MasterIndex) Insert(idx *Index) {
	if !idx.Final() {
		panic("insert of index that is not finalized")
	}
	mi.idx[idx.ID()] = idx
}

// Lookup returns the index with the given id.
func (mi *MasterIndex) Lookup(id uint8) (*Index, error) {
	idx := mi.idx[id]
	if idx == nil {
		return nil, errors.Wrapf(errors.ErrIndexNotFound, "index %d", id)
	}
	return idx, nil
}

// IDs returns the ids of all indices in ascending order.
func (mi *MasterIndex) IDs() []uint8 {
	var ids []uint8
	for id, idx := range mi.idx {
		if idx != nil {
			ids = append(ids, uint8(id))
		}
	}
	return ids
}
