// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses page/limit query parameters and builds the "meta"
// block of paginated envelopes (workspace lists, member lists).
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a 1-indexed page request.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before Page.
func (p Params) Offset() int {
	return max(p.Page-1, 0) * p.Limit
}

// Meta is the "meta" object of a paginated envelope.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta builds the meta block, rounding partial pages up.
func NewMeta(page, limit, total int) Meta {
	meta := Meta{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	return meta
}

// FromRequest reads "page" and "limit" from the query string.
func FromRequest(r *http.Request) Params {
	return FromValues(r.URL.Query())
}

// FromValues parses page and limit. Anything unparsable or out of range falls
// back to [DefaultPage] and [DefaultLimit] rather than failing the request.
func FromValues(values url.Values) Params {
	return Params{
		Page:  intOr(values.Get("page"), DefaultPage, 1, 0),
		Limit: intOr(values.Get("limit"), DefaultLimit, 1, MaxLimit),
	}
}

// intOr parses raw, returning fallback when it is not an integer in [lower, upper].
// An upper of zero means unbounded.
func intOr(raw string, fallback, lower, upper int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < lower || (upper > 0 && n > upper) {
		return fallback
	}
	return n
}
