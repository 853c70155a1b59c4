package sesspool

// roundRobin walks over indexes of a fixed-size table in a circular order.
type roundRobin struct {
	idx  int
	size int
}

// newRoundRobin returns a cursor which points to the first index on the next() call.
func newRoundRobin(size int) roundRobin {
	rr := roundRobin{size: size}
	rr.restart()
	return rr
}

func (rr *roundRobin) next() int {
	rr.idx++
	if rr.idx >= rr.size {
		rr.idx = 0
	}

	return rr.idx
}

// moveTo makes idx the last returned index.
func (rr *roundRobin) moveTo(idx int) {
	rr.idx = idx
}

func (rr *roundRobin) restart() {
	rr.idx = rr.size - 1
}
