// Package assemble turns classified bubbles into per-question answers.
package assemble

import (
	"sort"

	"github.com/ironsheep/omr-grader/internal/model"
)

// Assemble maps classified bubbles on a sheet of the given width to the set of
// options marked for every question of spec.
//
// Bubbles that already carry a question number are used as-is. The rest are
// bucketed into columns by their center, clustered into rows top to bottom,
// and ordered left to right within a row; row r of column c is question
// c*RowsPerColumn+r+1. A row whose bubble count differs from the question's
// option count is unreadable and yields an empty set.
//
// The result always holds exactly spec.NumQuestions() entries.
func Assemble(bubbles []model.Bubble, spec model.GridSpec, width int) model.StudentAnswer {
	total := spec.NumQuestions()
	answers := make(model.StudentAnswer, total)
	for q := 1; q <= total; q++ {
		answers[q] = []int{}
	}

	var loose []model.Bubble
	for _, b := range bubbles {
		if b.Question == 0 {
			loose = append(loose, b)
			continue
		}
		if b.Filled && b.Question <= total {
			answers[b.Question] = append(answers[b.Question], b.Option)
		}
	}

	for col, bucket := range Columns(loose, spec, width) {
		for r, row := range Rows(bucket) {
			q := col*spec.RowsPerColumn + r + 1
			if r >= spec.RowsPerColumn || q > total {
				break
			}
			if len(row) != spec.OptionCount(q) {
				continue
			}
			for opt, b := range row {
				if b.Filled {
					answers[q] = append(answers[q], opt)
				}
			}
		}
	}

	for q, opts := range answers {
		answers[q] = dedupe(opts)
	}
	return answers
}

// Columns splits bubbles into spec.Columns buckets by center x.
func Columns(bubbles []model.Bubble, spec model.GridSpec, width int) [][]model.Bubble {
	buckets := make([][]model.Bubble, max(1, spec.Columns))
	for _, b := range bubbles {
		c := spec.ColumnOf(b.Center.X, width)
		buckets[c] = append(buckets[c], b)
	}
	return buckets
}

// Rows clusters the bubbles of one column into rows, top to bottom, each
// sorted left to right.
//
// A bubble starts a new row when its center is more than half the median
// bubble height below the first bubble of the current row.
func Rows(bubbles []model.Bubble) [][]model.Bubble {
	if len(bubbles) == 0 {
		return nil
	}
	sorted := make([]model.Bubble, len(bubbles))
	copy(sorted, bubbles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Center.Y < sorted[j].Center.Y
	})

	tol := medianHeight(sorted) / 2
	var rows [][]model.Bubble
	var cur []model.Bubble
	for _, b := range sorted {
		if len(cur) > 0 && float64(b.Center.Y-cur[0].Center.Y) > tol {
			rows = append(rows, cur)
			cur = nil
		}
		cur = append(cur, b)
	}
	rows = append(rows, cur)

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].Center.X < row[j].Center.X
		})
	}
	return rows
}

func medianHeight(bubbles []model.Bubble) float64 {
	hs := make([]int, len(bubbles))
	for i, b := range bubbles {
		hs[i] = b.Bounds.Dy()
	}
	sort.Ints(hs)
	n := len(hs)
	if n%2 == 1 {
		return float64(hs[n/2])
	}
	return float64(hs[n/2-1]+hs[n/2]) / 2
}

// dedupe sorts opts and removes repeats. It never returns nil.
func dedupe(opts []int) []int {
	sort.Ints(opts)
	out := make([]int, 0, len(opts))
	for i, o := range opts {
		if i > 0 && o == opts[i-1] {
			continue
		}
		out = append(out, o)
	}
	return out
}
