package speedscope

import (
	"sort"
	"strconv"

	"github.com/hpcprof/cct/internal/cct"
	"github.com/hpcprof/cct/internal/metric"
	"github.com/hpcprof/cct/internal/profile"
)

const (
	Schema = "https://www.speedscope.app/file-format-schema.json"

	ProfileTypeSampled ProfileType = "sampled"

	ValueUnitNone ValueUnit = "none"
)

type (
	Frame struct {
		Name string `json:"name"`
	}

	SampledProfile struct {
		EndValue   float64     `json:"endValue"`
		Name       string      `json:"name"`
		Samples    [][]int     `json:"samples"`
		StartValue float64     `json:"startValue"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
		Weights    []float64   `json:"weights"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	ProfileType string
	ValueUnit   string

	Output struct {
		Schema             string           `json:"$schema"`
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		Exporter           string           `json:"exporter"`
		Name               string           `json:"name"`
		Profiles           []SampledProfile `json:"profiles"`
		Shared             SharedData       `json:"shared"`
	}
)

// FromProfile converts p into one sampled profile per epoch, weighted by
// the metric called metricName. Every node with a non-zero value becomes a
// sample whose stack is the node's call path without the root. Epochs
// without the metric are skipped.
func FromProfile(p *profile.Profile, metricName string) Output {
	o := Output{
		Schema:   Schema,
		Exporter: "cctdump",
		Name:     p.Name,
		Profiles: []SampledProfile{},
	}
	frames := make(map[string]int)
	for i, ep := range p.Epochs {
		column := -1
		for j, d := range ep.Metrics {
			if d.Name == metricName {
				column = j
				break
			}
		}
		if column < 0 {
			continue
		}
		kind := ep.Metrics[column].Kind
		sp := SampledProfile{
			Name: metricName,
			Type: ProfileTypeSampled,
			Unit: ValueUnitNone,
		}
		if len(p.Epochs) > 1 {
			sp.Name = metricName + " (epoch " + strconv.Itoa(i) + ")"
		}
		ep.Tree.Walk(func(n *profile.Node, _ int) {
			if column >= len(n.Metrics) || n.Metrics[column].IsZero() {
				return
			}
			var stack []int
			for _, a := range n.Path() {
				if a == cct.RootAddr {
					continue
				}
				name := ep.FrameName(a)
				idx, ok := frames[name]
				if !ok {
					idx = len(o.Shared.Frames)
					frames[name] = idx
					o.Shared.Frames = append(o.Shared.Frames, Frame{Name: name})
				}
				stack = append(stack, idx)
			}
			sp.Samples = append(sp.Samples, stack)
			sp.Weights = append(sp.Weights, weight(n.Metrics[column], kind))
		})
		sortSamples(&sp, o.Shared.Frames)
		for _, w := range sp.Weights {
			sp.EndValue += w
		}
		o.Profiles = append(o.Profiles, sp)
	}
	return o
}

func weight(v metric.Value, k metric.Kind) float64 {
	if k == metric.KindReal {
		return v.Real()
	}
	return float64(v.Int())
}

// sortSamples orders samples alphabetically by frame name, keeping each
// weight with its sample.
func sortSamples(sp *SampledProfile, frames []Frame) {
	order := make([]int, len(sp.Samples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return lessStack(sp.Samples[order[i]], sp.Samples[order[j]], frames)
	})
	samples := make([][]int, len(order))
	weights := make([]float64, len(order))
	for i, o := range order {
		samples[i] = sp.Samples[o]
		weights[i] = sp.Weights[o]
	}
	sp.Samples, sp.Weights = samples, weights
}

func lessStack(a, b []int, frames []Frame) bool {
	c := 0
	for {
		if len(a) == c {
			return len(b) > c
		} else if len(b) == c {
			return false
		}
		if frames[a[c]].Name < frames[b[c]].Name {
			return true
		} else if frames[a[c]].Name > frames[b[c]].Name {
			return false
		}
		c++
	}
}
