package collections

import (
	"cmp"
	"slices"
)

func Keys[K comparable, V any](m map[K]V) []K {
	var result []K
	for k := range m {
		result = append(result, k)
	}
	return result
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	result := Keys(m)
	slices.Sort(result)
	return result
}

func Contains[T comparable](list []T, t T) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func ContainsAll[T comparable](list []T, values ...T) bool {
	for _, v := range values {
		if !Contains(list, v) {
			return false
		}
	}
	return true
}

// Uniq drops repeated elements, keeping the first occurrence.
func Uniq[T comparable](list []T) []T {
	seen := make(map[T]struct{}, len(list))
	result := make([]T, 0, len(list))
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
