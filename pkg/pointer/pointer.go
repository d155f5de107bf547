// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer helps with the optional fields of PATCH payloads, where a nil
pointer means "leave unchanged" and a non-nil pointer carries the new value.
*/
package pointer

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

// Map applies transform to the value behind p. A nil p stays nil.
func Map[T any, U any](p *T, transform func(T) U) *U {
	if p == nil {
		return nil
	}
	mapped := transform(*p)
	return &mapped
}
