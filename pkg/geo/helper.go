package geo

import (
	"container/list"

	"lintang/roadgraph/pkg/datastructure"
)

const (
	DOUGLAS_PEUCKER_THRESHOLD = 7.0 // 7 meter
)

// https://cartography-playground.gitlab.io/playgrounds/douglas-peucker-algorithm/

// RamerDouglasPeucker simplifies an edge geometry. first and last coordinate are always kept.
func RamerDouglasPeucker(coords []datastructure.Coordinate, threshold float64) []datastructure.Coordinate {
	size := len(coords)
	if size <= 2 {
		return coords
	}

	kept := make([]bool, size)
	kept[0] = true
	kept[size-1] = true

	stack := list.New()
	stack.PushBack([2]int{0, size - 1})

	for stack.Len() > 0 {
		pair := stack.Remove(stack.Back()).([2]int)
		left, right := pair[0], pair[1]
		var maxDist float64
		farthestIndex := left

		for i := left + 1; i < right; i++ {
			dist := PointLinePerpendicularDistance(coords[left], coords[right], coords[i])
			if dist > maxDist {
				maxDist = dist
				farthestIndex = i
			}
		}

		if maxDist > threshold {
			kept[farthestIndex] = true
			stack.PushBack([2]int{left, farthestIndex})
			stack.PushBack([2]int{farthestIndex, right})
		}
	}

	simplified := make([]datastructure.Coordinate, 0, size)
	for i, necessary := range kept {
		if necessary {
			simplified = append(simplified, coords[i])
		}
	}
	return simplified
}
