package schema

import (
	log "github.com/sirupsen/logrus"
)

// SortTablesByLinks sorts tables by dependency order so that link targets are
// created (and filled) before the tables pointing at them.
// It handles circular dependencies by using a scoring system.
func SortTablesByLinks(tables []*Table) []*Table {
	var sorted []*Table
	processed := make(map[string]bool)
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	for len(sorted) < len(tables) {
		added := false

		// Pass 1: tables whose dependencies are all placed
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}

			ready := true
			for _, dep := range t.Dependencies {
				if _, known := byName[dep]; known && !processed[dep] {
					ready = false
					break
				}
			}

			if ready {
				sorted = append(sorted, t)
				processed[t.Name] = true
				added = true
			}
		}

		if added {
			continue
		}

		// Pass 2: a cycle. Prefer the table with the fewest open dependencies,
		// and among those one that is part of a two-table cycle.
		var best *Table
		bestScore := -999999
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}

			score := 0
			circular := false
			for _, dep := range t.Dependencies {
				if processed[dep] {
					continue
				}
				score -= 100
				if d, ok := byName[dep]; ok {
					for _, back := range d.Dependencies {
						if back == t.Name {
							circular = true
						}
					}
				}
			}
			if circular {
				score += 500
			}

			if score > bestScore || (score == bestScore && best != nil && t.Name < best.Name) {
				bestScore = score
				best = t
			}
		}

		if best == nil {
			log.Warn("[Sort] Remaining tables cannot be sorted")
			break
		}
		sorted = append(sorted, best)
		processed[best.Name] = true
		log.Debugf("[Sort] Breaking circular dependency: %s (Score: %d)", best.Name, bestScore)
	}

	return sorted
}
