package fixture

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slotgrid/internal/filter"
	"github.com/roach88/slotgrid/internal/layout"
)

// LayoutInput is a standalone lane-assignment request. Bounds are either
// all numbers or all timestamps.
type LayoutInput struct {
	ClusterSpan bool         `yaml:"cluster_span" json:"cluster_span,omitempty"`
	Allocations []LayoutItem `yaml:"allocations" json:"allocations"`
}

// LayoutItem is one named interval of a LayoutInput.
type LayoutItem struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// LayoutResult is a LayoutItem with its lane assignment.
type LayoutResult struct {
	LayoutItem
	Index    int `json:"index"`
	MaxIndex int `json:"max_index"`
}

// DecodeLayout reads a LayoutInput, rejecting unknown keys.
func DecodeLayout(r io.Reader) (*LayoutInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read layout input: %w", err)
	}

	var in LayoutInput
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&in); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &in, nil
}

// Assign runs the lane assignment over the input and returns the results
// in input order.
func (in *LayoutInput) Assign() ([]LayoutResult, error) {
	results, _, err := in.AssignSummary()
	return results, err
}

// AssignSummary is Assign that also reports the lane count and the peak
// number of overlapping allocations.
func (in *LayoutInput) AssignSummary() ([]LayoutResult, layout.Summary, error) {
	var opts []layout.Option
	if in.ClusterSpan {
		opts = append(opts, layout.WithClusterSpan())
	}

	numeric := len(in.Allocations) > 0 && isNumber(in.Allocations[0].Start)
	var (
		lanes [][2]int
		sum   layout.Summary
		err   error
	)
	if numeric {
		lanes, sum, err = assignNumbers(in.Allocations, opts)
	} else {
		lanes, sum, err = assignTimes(in.Allocations, opts)
	}
	if err != nil {
		return nil, layout.Summary{}, err
	}

	out := make([]LayoutResult, len(in.Allocations))
	for i, item := range in.Allocations {
		out[i] = LayoutResult{LayoutItem: item, Index: lanes[i][0], MaxIndex: lanes[i][1]}
	}
	return out, sum, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func assignNumbers(items []LayoutItem, opts []layout.Option) ([][2]int, layout.Summary, error) {
	allocs := make([]*layout.Allocation[float64], len(items))
	for i, item := range items {
		start, err := strconv.ParseFloat(item.Start, 64)
		if err != nil {
			return nil, layout.Summary{}, fmt.Errorf("allocation %d (%s): start %q is not a number", i, item.Name, item.Start)
		}
		end, err := strconv.ParseFloat(item.End, 64)
		if err != nil {
			return nil, layout.Summary{}, fmt.Errorf("allocation %d (%s): end %q is not a number", i, item.Name, item.End)
		}
		allocs[i] = &layout.Allocation[float64]{Start: start, End: end}
	}
	if _, err := layout.AssignOrdered(allocs, opts...); err != nil {
		return nil, layout.Summary{}, err
	}
	sum, err := layout.Stats(allocs, cmp.Compare[float64])
	return lanesOf(allocs), sum, err
}

func assignTimes(items []LayoutItem, opts []layout.Option) ([][2]int, layout.Summary, error) {
	allocs := make([]*layout.Allocation[time.Time], len(items))
	for i, item := range items {
		start, err := filter.ParseTime(item.Start)
		if err != nil {
			return nil, layout.Summary{}, fmt.Errorf("allocation %d (%s): start: %w", i, item.Name, err)
		}
		end, err := filter.ParseTime(item.End)
		if err != nil {
			return nil, layout.Summary{}, fmt.Errorf("allocation %d (%s): end: %w", i, item.Name, err)
		}
		allocs[i] = &layout.Allocation[time.Time]{Start: start, End: end}
	}
	if _, err := layout.AssignTimes(allocs, opts...); err != nil {
		return nil, layout.Summary{}, err
	}
	sum, err := layout.Stats(allocs, time.Time.Compare)
	return lanesOf(allocs), sum, err
}

func lanesOf[T any](allocs []*layout.Allocation[T]) [][2]int {
	out := make([][2]int, len(allocs))
	for i, a := range allocs {
		out[i] = [2]int{a.Index, a.MaxIndex}
	}
	return out
}
