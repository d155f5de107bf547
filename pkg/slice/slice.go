// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slice holds the generic slice helpers the standard [slices] package lacks.
package slice

// Map converts every element of input. A nil input maps to nil so that
// JSON encoders can still tell "absent" from "empty".
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}
