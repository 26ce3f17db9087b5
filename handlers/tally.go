// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/danielhkuo/planning-poker/models"
	"github.com/danielhkuo/planning-poker/scales"
)

// ComputeTally groups revealed votes by card and averages the numeric ones.
// RoomID, ScaleType and ChartType are left for the caller to fill in.
func ComputeTally(values []string, scale scales.Scale) models.Results {
	counts := make(map[string]int)
	var sum float64
	var numeric int
	var total int

	for _, v := range values {
		if v == "" {
			continue
		}
		total++
		counts[v]++
		if n, ok := scales.Numeric(v); ok {
			sum += n
			numeric++
		}
	}

	groups := make([]models.VoteGroup, 0, len(counts))
	for point, count := range counts {
		groups = append(groups, models.VoteGroup{
			Point: point,
			Count: count,
			Color: scales.PointColor(point),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return pointLess(scale, groups[i].Point, groups[j].Point)
	})

	results := models.Results{
		VoteCount: total,
		Groups:    groups,
		Consensus: total >= 2 && len(groups) == 1,
	}
	if numeric > 0 {
		results.Average = sum / float64(numeric)
		results.HasAverage = true
	}
	return results
}

// pointLess orders card faces: numbers ascending, then the rest of the
// scale in deck order, then values the scale doesn't know.
func pointLess(scale scales.Scale, a, b string) bool {
	na, aNum := scales.Numeric(a)
	nb, bNum := scales.Numeric(b)
	if aNum != bNum {
		return aNum
	}
	if aNum {
		if na != nb {
			return na < nb
		}
		return a < b
	}

	ia, ib := scale.IndexOf(a), scale.IndexOf(b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	}
	return a < b
}

// loadVoteValues returns every vote cast in the room
func loadVoteValues(ctx context.Context, q queryer, roomID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT value FROM vote WHERE room_id = $1 ORDER BY participant_key
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// roomResults computes the tally for a room as stored
func roomResults(ctx context.Context, q queryer, room models.Room) (models.Results, error) {
	values, err := loadVoteValues(ctx, q, room.ID)
	if err != nil {
		return models.Results{}, err
	}

	results := ComputeTally(values, scales.Lookup(room.ScaleType))
	results.RoomID = room.ID
	results.ScaleType = room.ScaleType
	results.ChartType = room.ChartType
	return results, nil
}
