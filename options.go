package flatvec

import (
	"github.com/flatvec/flatvec/resource"
)

type options struct {
	logger          *Logger
	metrics         MetricsCollector
	controller      *resource.Controller
	numWorkers      int
	blockSize       int
	initialCapacity int
}

// Option configures Flatvec constructor behavior.
//
// Options exist to avoid exploding the API surface with constructor
// variants.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging (the default).
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithResourceController attaches a resource controller. Vector storage is
// then accounted against its memory budget and searches respect its
// concurrency limit. Useful when several indexes share one process.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithNumWorkers configures the number of goroutines used for parallel
// scans and batch queries. Zero (the default) means runtime.GOMAXPROCS(0).
//
// Each query's scan is read-only and independent, so batches parallelize
// across queries and large single-query scans parallelize across contiguous
// blocks of the store.
func WithNumWorkers(n int) Option {
	return func(o *options) {
		o.numWorkers = n
	}
}

// WithBlockSize configures the number of vectors processed per scan block.
// Zero (the default) uses flat.DefaultBlockSize. Mostly useful for tuning
// cache behavior at unusual dimensions.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

// WithInitialCapacity pre-allocates storage for the given number of vectors,
// avoiding repeated growth during bulk loads.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}
