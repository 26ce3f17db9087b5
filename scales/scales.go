// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scales

import (
	"math"
	"strconv"
	"strings"
)

// Scale keys
const (
	Fibonacci = "fibonacci"
	Modified  = "modified"
	TShirt    = "tshirt"
	Powers    = "powers"
)

// Card faces that are not estimates
const (
	Coffee  = "☕"
	Unknown = "?"
	Half    = "½"
)

// DefaultColor is used for values without an entry in the colour map
const DefaultColor = "#808080"

type Scale struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Values      []string `json:"values"`
	Description string   `json:"description"`
}

var catalogue = []Scale{
	{
		Key:         Fibonacci,
		Name:        "Fibonacci",
		Values:      []string{"0", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89", Coffee, Unknown},
		Description: "0, 1, 2, 3, 5, 8, 13...",
	},
	{
		Key:         Modified,
		Name:        "Modified Fibonacci",
		Values:      []string{"0", Half, "1", "2", "3", "5", "8", "13", "20", "40", "100", Coffee, Unknown},
		Description: "0, ½, 1, 2, 3, 5...",
	},
	{
		Key:         TShirt,
		Name:        "T-Shirt",
		Values:      []string{"XS", "S", "M", "L", "XL", "XXL", Coffee, Unknown},
		Description: "XS, S, M, L, XL, XXL",
	},
	{
		Key:         Powers,
		Name:        "Powers of 2",
		Values:      []string{"0", "1", "2", "4", "8", "16", "32", "64", Coffee, Unknown},
		Description: "0, 1, 2, 4, 8, 16...",
	},
}

var pointColors = map[string]string{
	"0":   "#003366",
	Half:  "#00CCFF",
	"1":   "#FFD700",
	"2":   "#FF5722",
	"3":   "#E91E63",
	"4":   "#673AB7",
	"5":   "#4CAF50",
	"8":   "#8E44AD",
	"13":  "#FF9800",
	"16":  "#B71C1C",
	"20":  "#2196F3",
	"21":  "#6A1B9A",
	"32":  "#009688",
	"34":  "#3F51B5",
	"40":  "#FF4081",
	"55":  "#0097A7",
	"64":  "#7E57C2",
	"89":  "#6D4C41",
	"100": "#D32F2F",

	"XS":  "#01579B",
	"S":   "#0288D1",
	"M":   "#512DA8",
	"L":   "#7B1FA2",
	"XL":  "#D81B60",
	"XXL": "#880E4F",

	Coffee:  "#795548",
	Unknown: "#9C27B0",
}

// All returns a copy of the catalogue in display order
func All() []Scale {
	out := make([]Scale, len(catalogue))
	for i, s := range catalogue {
		s.Values = append([]string(nil), s.Values...)
		out[i] = s
	}
	return out
}

// IsKnown reports whether key names a scale in the catalogue
func IsKnown(key string) bool {
	_, ok := find(key)
	return ok
}

// Lookup returns the scale for key, falling back to Fibonacci
func Lookup(key string) Scale {
	if s, ok := find(key); ok {
		return s
	}
	s, _ := find(Fibonacci)
	return s
}

func find(key string) (Scale, bool) {
	for _, s := range catalogue {
		if s.Key == key {
			s.Values = append([]string(nil), s.Values...)
			return s, true
		}
	}
	return Scale{}, false
}

// Contains reports whether value is one of the scale's card faces
func (s Scale) Contains(value string) bool {
	return s.IndexOf(value) >= 0
}

// IndexOf returns the position of value on the scale, or -1
func (s Scale) IndexOf(value string) int {
	for i, v := range s.Values {
		if v == value {
			return i
		}
	}
	return -1
}

// Numeric parses a card face as a number. Coffee, "?" and T-shirt sizes
// are not numeric.
func Numeric(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == Half {
		return 0.5, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// PointColor returns the display colour for a card face
func PointColor(value string) string {
	if c, ok := pointColors[value]; ok {
		return c
	}
	return DefaultColor
}
