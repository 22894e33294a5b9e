package assignment

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Grades associates question indices with points.
// The LMS sends them as objects keyed by string or numeric index, as arrays, or with stringly numbers;
// every shape is collapsed into Grades when decoding.
type Grades map[int]float64

// ParseGrades converts a decoded JSON value into Grades.
// Entries whose key or value cannot be read as a number are skipped.
func ParseGrades(v interface{}) (Grades, error) {
	switch raw := v.(type) {
	case nil:
		return nil, nil
	case Grades:
		return raw.Clone(), nil
	case map[string]interface{}:
		g := make(Grades, len(raw))
		for k, val := range raw {
			idx, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			if pts, ok := toPoints(val); ok {
				g[idx] = pts
			}
		}
		return g, nil
	case map[int]interface{}:
		g := make(Grades, len(raw))
		for idx, val := range raw {
			if pts, ok := toPoints(val); ok {
				g[idx] = pts
			}
		}
		return g, nil
	case map[int]float64:
		return Grades(raw).Clone(), nil
	case map[string]float64:
		g := make(Grades, len(raw))
		for k, pts := range raw {
			if idx, err := strconv.Atoi(k); err == nil {
				g[idx] = pts
			}
		}
		return g, nil
	case []interface{}:
		g := make(Grades, len(raw))
		for idx, val := range raw {
			if pts, ok := toPoints(val); ok {
				g[idx] = pts
			}
		}
		return g, nil
	default:
		return nil, errors.Errorf("unsupported grades type %T", v)
	}
}

func toPoints(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok && s == "" {
		return 0, false
	}
	pts, err := cast.ToFloat64E(v)
	return pts, err == nil
}

// Get returns the points for question i, and whether there are any.
func (g Grades) Get(i int) (float64, bool) {
	pts, ok := g[i]
	return pts, ok
}

// Indices returns the graded question indices in ascending order.
func (g Grades) Indices() []int {
	idxs := make([]int, 0, len(g))
	for i := range g {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

func (g Grades) Clone() Grades {
	if g == nil {
		return nil
	}
	out := make(Grades, len(g))
	for i, pts := range g {
		out[i] = pts
	}
	return out
}

// Sum returns the total points.
func (g Grades) Sum() float64 {
	var total float64
	for _, i := range g.Indices() {
		total += g[i]
	}
	return total
}

// MarshalJSON writes an object keyed by question index, in index order.
func (g Grades) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for n, i := range g.Indices() {
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(i)))
		buf.WriteByte(':')
		pts, err := json.Marshal(g[i])
		if err != nil {
			return nil, err
		}
		buf.Write(pts)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *Grades) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseGrades(v)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
