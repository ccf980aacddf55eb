package prometheus

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/MrEthical07/loginGuard/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() loginGuard.MetricsSnapshot
	AuditDroppedByType() map[string]uint64
}

// PrometheusExporter renders engine metrics in the Prometheus text
// exposition format without a client library or global registry.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *loginGuard.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves [PrometheusExporter.Render] on GET.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text, or "" when metrics are disabled and
// nothing was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDroppedByType()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && len(dropped) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, fam := range internaldefs.CounterFamilies {
		writeHeader(&b, fam.Name, fam.Help, "counter")
		for _, s := range fam.Series {
			writeSample(&b, fam.Name, s.Labels, snapshot.Counters[s.ID])
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(nonCumulative))
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	types := make([]string, 0, len(dropped))
	for t := range dropped {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		writeSample(&b, internaldefs.AuditDroppedName, []internaldefs.Label{{Name: "event_type", Value: t}}, dropped[t])
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name string, labels []internaldefs.Label, value uint64) {
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(l.Name)
			b.WriteString(`="`)
			b.WriteString(escapeLabel(l.Value))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", []internaldefs.Label{{Name: "le", Value: le}}, cumulative[i])
	}
	writeSample(b, name+"_count", nil, cumulative[len(cumulative)-1])
	// Snapshots carry no sum.
	writeSample(b, name+"_sum", nil, 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
