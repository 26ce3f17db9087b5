// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package scales holds the estimation card decks a room can use and the
// colour assigned to each card face.
package scales
