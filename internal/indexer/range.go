package indexer

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len returns the number of blocks in r.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// catchUp splits the blocks from next through head into ranges of at most size blocks.
// It returns nil while head is behind next.
func catchUp(next, head, size uint64) []BlockRange {
	if head < next {
		return nil
	}
	if size == 0 {
		size = 1
	}

	var ranges []BlockRange
	from := next
	for {
		to := head
		if head-from >= size {
			to = from + size - 1
		}
		ranges = append(ranges, BlockRange{From: from, To: to})
		if to == head {
			return ranges
		}
		from = to + 1
	}
}
