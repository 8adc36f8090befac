package metrics

import (
	"errors"
	"math"
	"sort"

	"github.com/hpcprof/cct/internal/metric"
	"github.com/hpcprof/cct/internal/profile"
)

type frameAggregate struct {
	name   string
	values []uint64
	sum    uint64
}

type FramesMetadata struct {
	MaxVal   uint64
	WorstID  string
	Examples []string
}

// Aggregator sums the exclusive value of one metric per frame over many
// profiles.
type Aggregator struct {
	MaxUniqueFrames  uint
	MaxNumOfExamples uint
	Metric           string
	frames           map[string]*frameAggregate
	FramesMetadata   map[string]FramesMetadata
}

type FrameMetrics struct {
	Name     string   `json:"name"`
	P75      uint64   `json:"p75"`
	P95      uint64   `json:"p95"`
	P99      uint64   `json:"p99"`
	Avg      float64  `json:"avg"`
	Sum      uint64   `json:"sum"`
	Count    uint64   `json:"count"`
	Worst    string   `json:"worst"`
	Examples []string `json:"examples"`
}

func NewAggregator(metricName string, maxUniqueFrames uint, maxNumOfExamples uint) Aggregator {
	return Aggregator{
		MaxUniqueFrames:  maxUniqueFrames,
		MaxNumOfExamples: maxNumOfExamples,
		Metric:           metricName,
		frames:           make(map[string]*frameAggregate),
		FramesMetadata:   make(map[string]FramesMetadata),
	}
}

// AddProfile adds the per-frame totals of p. Values of real metrics are
// rounded to integers.
func (ma *Aggregator) AddProfile(p *profile.Profile) {
	totals := make(map[string]uint64)
	for _, ep := range p.Epochs {
		column := -1
		for i, d := range ep.Metrics {
			if d.Name == ma.Metric {
				column = i
				break
			}
		}
		if column < 0 {
			continue
		}
		kind := ep.Metrics[column].Kind
		ep.Tree.Walk(func(n *profile.Node, _ int) {
			if column >= len(n.Metrics) || n.Metrics[column].IsZero() {
				return
			}
			v := n.Metrics[column].Int()
			if kind == metric.KindReal {
				v = uint64(math.Round(n.Metrics[column].Real()))
			}
			totals[ep.FrameName(n.Addr)] += v
		})
	}
	for name, v := range totals {
		ma.add(name, v, p.Name)
	}
}

func (ma *Aggregator) add(name string, v uint64, id string) {
	f, ok := ma.frames[name]
	if !ok {
		ma.frames[name] = &frameAggregate{name: name, values: []uint64{v}, sum: v}
		ma.FramesMetadata[name] = FramesMetadata{
			MaxVal:   v,
			WorstID:  id,
			Examples: []string{id},
		}
		return
	}
	f.values = append(f.values, v)
	f.sum += v
	md := ma.FramesMetadata[name]
	if v > md.MaxVal {
		md.MaxVal = v
		md.WorstID = id
	}
	if len(md.Examples) < int(ma.MaxNumOfExamples) {
		md.Examples = append(md.Examples, id)
	}
	ma.FramesMetadata[name] = md
}

func (ma *Aggregator) ToMetrics() []FrameMetrics {
	metrics := make([]FrameMetrics, 0, len(ma.frames))

	for name, f := range ma.frames {
		sort.Slice(f.values, func(i, j int) bool {
			return f.values[i] < f.values[j]
		})
		p75, _ := quantile(f.values, 0.75)
		p95, _ := quantile(f.values, 0.95)
		p99, _ := quantile(f.values, 0.99)
		metrics = append(metrics, FrameMetrics{
			Name:     name,
			P75:      p75,
			P95:      p95,
			P99:      p99,
			Avg:      float64(f.sum) / float64(len(f.values)),
			Sum:      f.sum,
			Count:    uint64(len(f.values)),
			Worst:    ma.FramesMetadata[name].WorstID,
			Examples: ma.FramesMetadata[name].Examples,
		})
	}
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Sum != metrics[j].Sum {
			return metrics[i].Sum > metrics[j].Sum
		}
		return metrics[i].Name < metrics[j].Name
	})
	if len(metrics) > int(ma.MaxUniqueFrames) {
		metrics = metrics[:ma.MaxUniqueFrames]
	}
	return metrics
}

func quantile(values []uint64, q float64) (uint64, error) {
	if len(values) == 0 {
		return 0, errors.New("cannot compute percentile from empty list")
	}
	if q <= 0 || q > 1 {
		return 0, errors.New("q must be a value between 0 and 1.0")
	}
	index := int(math.Ceil(float64(len(values))*q)) - 1
	return values[index], nil
}
