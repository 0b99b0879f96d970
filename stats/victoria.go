package stats

import (
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

type victoriaCounter struct {
	counter *metrics.FloatCounter
}

func (s victoriaCounter) Inc() {
	s.counter.Add(1)
}

func (s victoriaCounter) Add(v float64) {
	s.counter.Add(v)
}

// The gauge value lives here; the metrics set reads it through a callback.
type victoriaGauge struct {
	bits *uint64 // atomic float64 bits
}

func (s victoriaGauge) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(s.bits))
}

func (s victoriaGauge) Set(v float64) {
	atomic.StoreUint64(s.bits, math.Float64bits(v))
}

func (s victoriaGauge) Add(v float64) {
	for {
		old := atomic.LoadUint64(s.bits)
		updated := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(s.bits, old, updated) {
			return
		}
	}
}

func (s victoriaGauge) Sub(v float64) {
	s.Add(-v)
}

func (s victoriaGauge) Inc() {
	s.Add(1)
}

func (s victoriaGauge) Dec() {
	s.Add(-1)
}

type victoriaSummary struct {
	summary *metrics.Summary
}

func (s victoriaSummary) Observe(v float64) {
	s.summary.Update(v)
}

// VictoriaMetricsStatsFactory registers every stat in a metrics.Set, which
// can be exported in the Prometheus text format.
type VictoriaMetricsStatsFactory struct {
	set *metrics.Set

	mutex  sync.Mutex
	gauges map[string]*uint64 // guarded by mutex
}

// This creates a StatsFactory backed by the given set.  When set is nil a
// fresh set is created.
func NewVictoriaMetricsStatsFactory(
	set *metrics.Set) *VictoriaMetricsStatsFactory {

	if set == nil {
		set = metrics.NewSet()
	}
	return &VictoriaMetricsStatsFactory{
		set:    set,
		gauges: make(map[string]*uint64),
	}
}

// See StatsFactory for documentation.
func (f *VictoriaMetricsStatsFactory) NewCounter(
	metric string,
	tags map[string]string) CounterStat {

	return victoriaCounter{
		counter: f.set.GetOrCreateFloatCounter(metricName(metric, tags)),
	}
}

// See StatsFactory for documentation.  Gauges with the same name and tags
// share one value.
func (f *VictoriaMetricsStatsFactory) NewGauge(
	metric string,
	tags map[string]string) GaugeStat {

	name := metricName(metric, tags)

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if bits, ok := f.gauges[name]; ok {
		return victoriaGauge{bits: bits}
	}

	g := victoriaGauge{bits: new(uint64)}
	f.set.GetOrCreateGauge(name, g.Get)
	f.gauges[name] = g.bits
	return g
}

// See StatsFactory for documentation.
func (f *VictoriaMetricsStatsFactory) NewSummary(
	metric string,
	tags map[string]string) SummaryStat {

	return victoriaSummary{
		summary: f.set.GetOrCreateSummary(metricName(metric, tags)),
	}
}

// WritePrometheus writes every registered stat in the Prometheus text format.
func (f *VictoriaMetricsStatsFactory) WritePrometheus(w io.Writer) {
	f.set.WritePrometheus(w)
}

// metricName renders name{k1="v1",k2="v2"} with the tags in key order.
func metricName(metric string, tags map[string]string) string {
	if len(tags) == 0 {
		return metric
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(metric)
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(strconv.Quote(tags[k]))
	}
	sb.WriteString("}")
	return sb.String()
}
