package indexer

import "fmt"

// BlockRange is an inclusive window of blocks.
type BlockRange struct {
	From uint64
	To   uint64
}

// Blocks returns the number of blocks in the window.
func (r BlockRange) Blocks() uint64 {
	return r.To - r.From + 1
}

// SplitRange cuts [from, to] into consecutive windows of at most size blocks.
func SplitRange(from, to, size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	windows := make([]BlockRange, 0, (to-from)/size+1)
	for start := from; ; start += size {
		// to-start < size also guards start+size-1 against overflow near MaxUint64.
		if to-start < size {
			windows = append(windows, BlockRange{From: start, To: to})
			return windows, nil
		}
		windows = append(windows, BlockRange{From: start, To: start + size - 1})
	}
}
