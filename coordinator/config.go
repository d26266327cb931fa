package coordinator

import "time"

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultWorkers        = 3

	DefaultSummaryMaxLen = 2000
	DefaultTopicsMaxLen  = 1000
	DefaultQueryMaxLen   = 500

	// MinSummaryInput is the shortest cleaned page worth summarizing.
	MinSummaryInput = 100
)

type Config struct {
	// RequestTimeout bounds a pipeline from the moment its key is first
	// requested, queue wait included.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Serial drains pipelines through a FIFO queue served by Workers
	// goroutines instead of starting one goroutine per key.
	Serial  bool `yaml:"serial"`
	Workers int  `yaml:"workers"`

	SummaryMaxLen int `yaml:"summary_max_len"`
	TopicsMaxLen  int `yaml:"topics_max_len"`
	QueryMaxLen   int `yaml:"query_max_len"`

	SweepInterval time.Duration `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: DefaultRequestTimeout,
		Serial:         true,
		Workers:        DefaultWorkers,
		SummaryMaxLen:  DefaultSummaryMaxLen,
		TopicsMaxLen:   DefaultTopicsMaxLen,
		QueryMaxLen:    DefaultQueryMaxLen,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.SummaryMaxLen <= 0 {
		c.SummaryMaxLen = d.SummaryMaxLen
	}
	if c.TopicsMaxLen <= 0 {
		c.TopicsMaxLen = d.TopicsMaxLen
	}
	if c.QueryMaxLen <= 0 {
		c.QueryMaxLen = d.QueryMaxLen
	}
	return c
}
