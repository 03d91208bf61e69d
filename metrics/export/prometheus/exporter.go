package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Br3achBl0ckers/authcore"
	"github.com/Br3achBl0ckers/authcore/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// MetricsSource is satisfied by *authcore.Engine.
type MetricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from a
// custom [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the exposition. Scrapes are never cached.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition, or "" while metrics are disabled
// and no audit event was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	e := exposition{buf: make([]byte, 0, 8192)}
	for _, def := range internaldefs.CounterDefs {
		e.counter(def.Name, def.Help, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histogram(def.Name, def.Help, snap.Histograms[def.ID])
	}
	e.counter(internaldefs.AuditDroppedName, "Audit events dropped because the dispatcher buffer was full.", dropped)

	return string(e.buf)
}

type exposition struct {
	buf []byte
}

func (e *exposition) family(name, help, kind string) {
	e.buf = append(e.buf, "# HELP "...)
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, ' ')
	e.buf = append(e.buf, escapeHelp(help)...)
	e.buf = append(e.buf, "\n# TYPE "...)
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, ' ')
	e.buf = append(e.buf, kind...)
	e.buf = append(e.buf, '\n')
}

func (e *exposition) sample(name, le string, v uint64) {
	e.buf = append(e.buf, name...)
	if le != "" {
		e.buf = append(e.buf, `{le="`...)
		e.buf = append(e.buf, le...)
		e.buf = append(e.buf, `"}`...)
	}
	e.buf = append(e.buf, ' ')
	e.buf = strconv.AppendUint(e.buf, v, 10)
	e.buf = append(e.buf, '\n')
}

func (e *exposition) counter(name, help string, v uint64) {
	e.family(name, help, "counter")
	e.sample(name, "", v)
}

// histogram writes cumulative buckets. Snapshots record bucket counts only,
// so _sum is always 0.
func (e *exposition) histogram(name, help string, raw []uint64) {
	e.family(name, help, "histogram")
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
	for i, le := range internaldefs.HistogramBounds {
		e.sample(name+"_bucket", le, cumulative[i])
	}
	e.sample(name+"_count", "", cumulative[len(cumulative)-1])
	e.sample(name+"_sum", "", 0)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
