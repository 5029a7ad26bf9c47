// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dag

import (
	"fmt"
	"sort"

	"github.com/axle-run/axle/axerr"
)

// Parse normalizes def into ParsedNodes, validates every dependency exists,
// detects cycles, and computes the topological stage layering in one pass,
// so a returned Plan is always executable.
func Parse(def Definition) (*Plan, error) {
	nodes := make(map[string]ParsedNode, len(def))
	// declOrder holds the node ids sorted lexically, so stage construction
	// orders "ready" sets deterministically.
	declOrder := make([]string, 0, len(def))
	for id := range def {
		declOrder = append(declOrder, id)
	}
	sort.Strings(declOrder)

	for _, id := range declOrder {
		input := def[id]
		deps := append([]string(nil), input.DependsOn...)
		nodes[id] = ParsedNode{ID: id, Steps: input.Steps, Dependencies: deps}
	}

	if err := validate(nodes); err != nil {
		return nil, err
	}

	stages, err := computeStages(nodes, declOrder)
	if err != nil {
		return nil, err
	}

	return &Plan{Nodes: nodes, Stages: stages}, nil
}

// validate checks every dependency id exists, then runs DFS three-color
// cycle detection.
func validate(nodes map[string]ParsedNode) error {
	for id, n := range nodes {
		for _, dep := range n.Dependencies {
			if _, ok := nodes[dep]; !ok {
				return axerr.New(axerr.KindUnknownDep, fmt.Sprintf("node %q depends on unknown node %q", id, dep)).WithNode(id)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, dep := range nodes[id].Dependencies {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				return axerr.New(axerr.KindCycle, fmt.Sprintf("cycle involving %s", dep)).WithNode(id)
			case black:
				// already fully explored, no cycle through here
			}
		}
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeStages performs Kahn-style layering: stage k is every node whose
// dependencies are all satisfied by stages <k. Nodes within a stage are
// sorted lexically by id for determinism; Definition is a map, so the order
// in which nodes were declared is not kept.
func computeStages(nodes map[string]ParsedNode, declOrder []string) ([][]string, error) {
	remaining := make(map[string]bool, len(nodes))
	for id := range nodes {
		remaining[id] = true
	}
	completed := make(map[string]bool, len(nodes))

	var stages [][]string
	for len(remaining) > 0 {
		var ready []string
		for _, id := range declOrder {
			if !remaining[id] {
				continue
			}
			if depsSatisfied(nodes[id].Dependencies, completed) {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			// validate() already rejects cycles; reaching this means an
			// internal invariant was broken.
			return nil, axerr.New(axerr.KindCycle, "stage construction stalled: cycle slipped past validation")
		}
		stages = append(stages, ready)
		for _, id := range ready {
			completed[id] = true
			delete(remaining, id)
		}
	}
	return stages, nil
}

func depsSatisfied(deps []string, completed map[string]bool) bool {
	for _, d := range deps {
		if !completed[d] {
			return false
		}
	}
	return true
}
