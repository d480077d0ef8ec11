package cachetest

import "encoding/binary"

// EncodeGroup packs files into the payload of a grouped archive, splitting
// every file into chunks pieces of roughly equal size.
func EncodeGroup(files [][]byte, chunks int) []byte {
	var data, table []byte
	for c := 0; c < chunks; c++ {
		last := 0
		for _, f := range files {
			piece := f[len(f)*c/chunks : len(f)*(c+1)/chunks]
			data = append(data, piece...)
			table = binary.BigEndian.AppendUint32(table, uint32(len(piece)-last))
			last = len(piece)
		}
	}
	data = append(data, table...)
	return append(data, byte(chunks))
}
