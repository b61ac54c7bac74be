package pri

// ProgressFunc receives a completion percentage in [0, 100]. Values never
// decrease within one parse. It is called on the parsing goroutine and must
// return quickly.
type ProgressFunc func(percent float64)

// ProgressChan adapts a channel to a ProgressFunc. Updates that do not fit
// in the channel are dropped, so a slow reader never stalls the parse.
func ProgressChan(ch chan<- float64) ProgressFunc {
	return func(p float64) {
		select {
		case ch <- p:
		default:
		}
	}
}

// progressSteps is how many intermediate updates a parse emits at most.
const progressSteps = 10

type progressTracker struct {
	fn    ProgressFunc
	total int
	every int
	last  float64
}

func newProgressTracker(fn ProgressFunc, total int) *progressTracker {
	return &progressTracker{fn: fn, total: total, every: max(1, total/progressSteps), last: -1}
}

func (p *progressTracker) emit(v float64) {
	if p.fn == nil || v <= p.last {
		return
	}
	p.last = v
	p.fn(v)
}

// step reports record i of total at bounded intervals.
func (p *progressTracker) step(i int) {
	if p.fn == nil || p.total == 0 || i%p.every != 0 {
		return
	}
	p.emit(float64(i) / float64(p.total) * 100)
}
