package codec

import "fmt"

// FragmentSize is the fixed payload size of a single fragment, per spec.
const FragmentSize = 128

// Fragment is one piece of a message split for transport. Length is
// authoritative for how many bytes of Data are meaningful; trailing bytes
// are zero-padded and must be discarded by decoders.
type Fragment struct {
	Index  uint64              `json:"fragment_index"`
	Total  uint64              `json:"total_n_fragments"`
	Length uint16              `json:"length"`
	Data   [FragmentSize]byte  `json:"data"`
}

// Split serializes bytes into fixed-size fragments. ceil(len/128) fragments
// are produced; the last is zero-padded with Length set to its real size.
func Split(payload []byte) []Fragment {
	if len(payload) == 0 {
		return []Fragment{{Index: 0, Total: 1, Length: 0}}
	}
	total := uint64((len(payload) + FragmentSize - 1) / FragmentSize)
	frags := make([]Fragment, 0, total)
	for i := uint64(0); i < total; i++ {
		start := int(i) * FragmentSize
		end := start + FragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		f := Fragment{Index: i, Total: total, Length: uint16(end - start)}
		copy(f.Data[:], payload[start:end])
		frags = append(frags, f)
	}
	return frags
}

// Reassemble concatenates a complete, index-ordered set of fragments back
// into the original byte string. The caller is responsible for confirming
// that frags holds exactly Total entries before calling.
func Reassemble(frags map[uint64]Fragment, total uint64) ([]byte, error) {
	out := make([]byte, 0, total*FragmentSize)
	for i := uint64(0); i < total; i++ {
		f, ok := frags[i]
		if !ok {
			return nil, fmt.Errorf("codec: missing fragment %d of %d", i, total)
		}
		out = append(out, f.Data[:f.Length]...)
	}
	return out, nil
}
