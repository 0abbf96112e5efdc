package extension

import (
	"sync"
	"time"

	"github.com/flowscan/batchload"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Success  = "success"
	NotFound = "notfound"
	Error    = "error"
)

// Collection of prometheus metrics
type StoreMetrics struct {
	AdditionalLabels        []string
	LoadTimeHistogram       *prometheus.HistogramVec
	LoadBatchHistogram      *prometheus.HistogramVec
	SetTimeHistogram        *prometheus.HistogramVec
	SetBatchHistogram       *prometheus.HistogramVec
	LayerLoadTimeHistogram  *prometheus.HistogramVec
	LayerLoadBatchHistogram *prometheus.HistogramVec
	LayerSetTimeHistogram   *prometheus.HistogramVec
	LayerSetBatchHistogram  *prometheus.HistogramVec
}

// Create a new store metric collector
// additionalLabels is a list of additional labels used for metric partitioning
func NewStoreMetrics(additionalLabels ...string) *StoreMetrics {
	labels := func(names ...string) []string {
		return append(append([]string{}, additionalLabels...), names...)
	}
	c := &StoreMetrics{}
	c.AdditionalLabels = additionalLabels
	c.LoadTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Name:      "load_time_seconds",
		Help:      "The time it takes to resolve a load request",
	}, labels("store", "status"))
	c.LoadBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Name:      "load_batch",
		Help:      "The batch size for each load",
	}, labels("store"))
	c.LayerLoadTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Subsystem: "layer",
		Name:      "load_time_seconds",
		Help:      "The time a layer takes to resolve a load request",
	}, labels("store", "layer", "status"))
	c.LayerLoadBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Subsystem: "layer",
		Name:      "load_batch",
		Help:      "The batch size for each load on to a layer",
	}, labels("store", "layer"))
	c.SetTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Name:      "set_time_seconds",
		Help:      "The time it takes to resolve a set request",
	}, labels("store", "status"))
	c.SetBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Name:      "set_batch",
		Help:      "The batch size for each set",
	}, labels("store"))
	c.LayerSetTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Subsystem: "layer",
		Name:      "set_time_seconds",
		Help:      "The time a layer takes to resolve a set request",
	}, labels("store", "layer", "status"))
	c.LayerSetBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchload",
		Subsystem: "layer",
		Name:      "set_batch",
		Help:      "The batch size for each set on to a layer",
	}, labels("store", "layer"))
	return c
}

// Collectors returns every metric, to be registered on a prometheus registry
func (c *StoreMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.LoadTimeHistogram,
		c.LoadBatchHistogram,
		c.SetTimeHistogram,
		c.SetBatchHistogram,
		c.LayerLoadTimeHistogram,
		c.LayerLoadBatchHistogram,
		c.LayerSetTimeHistogram,
		c.LayerSetBatchHistogram,
	}
}

// Register all metrics on the given registerer
func (c *StoreMetrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range c.Collectors() {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// PrometheusMetrics is an extension for layer instrumentation
type PrometheusMetrics[TKey comparable, TValue any] struct {
	storeName        string
	metrics          *StoreMetrics
	labelValues      []string
	layerIdentifiers []string
	loadStartTime    map[traceKey]time.Time
	setStartTime     map[traceKey]time.Time
	mu               sync.Mutex
}

// index used in the start time maps for the whole repository operation
const repositoryLevel = -1

// Create a new prometheus metrics extension with the given metrics collector
// labels is an optional parameter to add the given labels into the metrics from this store
func NewPrometheusMetrics[TKey comparable, TValue any](metrics *StoreMetrics, labelValues ...string) *PrometheusMetrics[TKey, TValue] {
	return &PrometheusMetrics[TKey, TValue]{
		labelValues:   labelValues,
		metrics:       metrics,
		loadStartTime: make(map[traceKey]time.Time),
		setStartTime:  make(map[traceKey]time.Time),
	}
}

func (e *PrometheusMetrics[TKey, TValue]) Name() string { return "PrometheusMetrics" }

func (e *PrometheusMetrics[TKey, TValue]) InitializationHook(r *batchload.Repository[TKey, TValue], layers []batchload.Layer[TKey, TValue]) error {
	e.storeName = r.Identifier()
	e.layerIdentifiers = make([]string, len(layers))
	for i, layer := range layers {
		e.layerIdentifiers[i] = layer.Identifier()
	}
	return nil
}

func (e *PrometheusMetrics[TKey, TValue]) PreLoadHook(traceID uint64, keys []TKey) {
	e.metrics.LoadBatchHistogram.WithLabelValues(e.labels(e.storeName)...).Observe(float64(len(keys)))
	e.start(e.loadStartTime, repositoryLevel, traceID)
}

func (e *PrometheusMetrics[TKey, TValue]) PostLoadHook(traceID uint64, keys []TKey, values []TValue, errors []error) {
	traceTime := e.finish(e.loadStartTime, repositoryLevel, traceID)
	for i := range keys {
		e.metrics.LoadTimeHistogram.WithLabelValues(e.labels(e.storeName, loadStatus(errors, i))...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) PreSetHook(traceID uint64, keys []TKey, values []TValue) {
	e.metrics.SetBatchHistogram.WithLabelValues(e.labels(e.storeName)...).Observe(float64(len(keys)))
	e.start(e.setStartTime, repositoryLevel, traceID)
}

func (e *PrometheusMetrics[TKey, TValue]) PostSetHook(traceID uint64, keys []TKey, values []TValue, errors [][]error) {
	traceTime := e.finish(e.setStartTime, repositoryLevel, traceID)
	for i := range keys {
		status := Success
		for _, layerErrors := range errors {
			if i < len(layerErrors) && layerErrors[i] != nil {
				status = Error
				break
			}
		}
		e.metrics.SetTimeHistogram.WithLabelValues(e.labels(e.storeName, status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPreLoadHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey) {
	e.metrics.LayerLoadBatchHistogram.WithLabelValues(e.labels(e.storeName, e.layerIdentifiers[layerIndex])...).Observe(float64(len(keys)))
	e.start(e.loadStartTime, layerIndex, traceID)
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPostLoadHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey, values []TValue, errors []error) {
	traceTime := e.finish(e.loadStartTime, layerIndex, traceID)
	for i := range keys {
		e.metrics.LayerLoadTimeHistogram.WithLabelValues(e.labels(e.storeName, e.layerIdentifiers[layerIndex], loadStatus(errors, i))...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPreSetHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey, values []TValue) {
	e.metrics.LayerSetBatchHistogram.WithLabelValues(e.labels(e.storeName, e.layerIdentifiers[layerIndex])...).Observe(float64(len(keys)))
	e.start(e.setStartTime, layerIndex, traceID)
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPostSetHook(traceID uint64, layerIndex int, layer batchload.Layer[TKey, TValue], keys []TKey, values []TValue, errors []error) {
	traceTime := e.finish(e.setStartTime, layerIndex, traceID)
	for i := range keys {
		status := Success
		if i < len(errors) && errors[i] != nil {
			status = Error
		}
		e.metrics.LayerSetTimeHistogram.WithLabelValues(e.labels(e.storeName, e.layerIdentifiers[layerIndex], status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) labels(values ...string) []string {
	return append(append([]string{}, e.labelValues...), values...)
}

func (e *PrometheusMetrics[TKey, TValue]) start(starts map[traceKey]time.Time, layerIndex int, traceID uint64) {
	e.mu.Lock()
	starts[traceKey{layerIndex, traceID}] = time.Now()
	e.mu.Unlock()
}

func (e *PrometheusMetrics[TKey, TValue]) finish(starts map[traceKey]time.Time, layerIndex int, traceID uint64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	started, ok := starts[traceKey{layerIndex, traceID}]
	if !ok {
		return 0
	}
	delete(starts, traceKey{layerIndex, traceID})
	return time.Since(started).Seconds()
}

// status of the key at the given index
func loadStatus(errors []error, i int) string {
	switch {
	case i >= len(errors) || errors[i] == nil:
		return Success
	case batchload.IsNotFound(errors[i]):
		return NotFound
	default:
		return Error
	}
}
