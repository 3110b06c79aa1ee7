package dialect

import (
	"strconv"
	"strings"

	"github.com/koustreak/pgcatalog/internal/errs"
)

// Index describes a non-primary index. Columns are in key order.
type Index struct {
	Table   string   `json:"table" yaml:"table"`
	Name    string   `json:"name" yaml:"name"`
	Unique  bool     `json:"unique" yaml:"unique"`
	Columns []string `json:"columns" yaml:"columns"`
}

// IndexRow is one row of the index catalog query: a single key column of
// one index together with the index's full key list.
type IndexRow struct {
	IndexName string
	Unique    bool
	Column    string
	AttNum    int
	// KeyAttNums is pg_index.indkey: the attribute number at each key
	// position, 0 for expression keys.
	KeyAttNums []int
}

// BuildIndexes groups rows by index name and places every column at the key
// position whose attribute number it carries. Row order within an index does
// not matter. Index order follows first appearance.
//
// At most limit key positions are kept per index; the catalog query never
// returns columns past the limit, so those positions are dropped rather
// than left empty. Expression keys leave an empty name at their position.
func BuildIndexes(table string, rows []IndexRow, limit int) []Index {
	var (
		indexes = []Index{}
		byName  = map[string]int{}
	)
	for _, r := range rows {
		i, ok := byName[r.IndexName]
		if !ok {
			keys := r.KeyAttNums
			if limit > 0 && len(keys) > limit {
				keys = keys[:limit]
			}
			indexes = append(indexes, Index{
				Table:   table,
				Name:    r.IndexName,
				Unique:  r.Unique,
				Columns: make([]string, len(keys)),
			})
			i = len(indexes) - 1
			byName[r.IndexName] = i
		}
		cols := indexes[i].Columns
		for pos := range cols {
			if pos < len(r.KeyAttNums) && r.KeyAttNums[pos] == r.AttNum {
				cols[pos] = r.Column
			}
		}
	}
	return indexes
}

// ParseIndKey parses the text form of an int2vector such as "2 1".
func ParseIndKey(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "invalid indkey "+strconv.Quote(s), err)
		}
		out = append(out, n)
	}
	return out, nil
}
