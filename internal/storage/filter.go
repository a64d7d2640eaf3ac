package storage

import (
	"fmt"
	"strings"

	"tally/internal/core"
)

// sortColumns whitelists every sort key a caller may pass. Anything else is
// rejected before the query is assembled; column names are never taken from
// input.
var sortColumns = map[string]string{
	"date":     "t.txn_date",
	"amount":   "t.amount_cents",
	"category": "c.name",
	"created":  "t.created_at",
}

// compiledFilter is a ready-to-splice WHERE conjunction. Every clause uses
// bound placeholders; args holds exactly one value per placeholder, in
// clause order.
type compiledFilter struct {
	where   []string
	args    []any
	orderBy string
}

func (c compiledFilter) whereSQL() string {
	return strings.Join(c.where, " AND ")
}

// compileFilter turns a filter into WHERE clauses plus ORDER BY. The
// ownership clause always comes first; absent fields contribute nothing.
func compileFilter(userID int64, f core.TransactionFilter) (compiledFilter, error) {
	if err := f.Validate(); err != nil {
		return compiledFilter{}, err
	}

	c := compiledFilter{
		where: []string{"t.user_id = ?"},
		args:  []any{userID},
	}

	if f.StartDate != nil {
		c.where = append(c.where, "t.txn_date >= ?")
		c.args = append(c.args, f.StartDate.String())
	}
	if f.EndDate != nil {
		c.where = append(c.where, "t.txn_date <= ?")
		c.args = append(c.args, f.EndDate.String())
	}
	if len(f.CategoryIDs) > 0 {
		placeholders := make([]string, 0, len(f.CategoryIDs))
		for _, id := range f.CategoryIDs {
			placeholders = append(placeholders, "?")
			c.args = append(c.args, id)
		}
		c.where = append(c.where, fmt.Sprintf("t.category_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if f.Type != nil {
		c.where = append(c.where, "c.type = ?")
		c.args = append(c.args, string(*f.Type))
	}
	if f.MinCents != nil {
		c.where = append(c.where, "t.amount_cents >= ?")
		c.args = append(c.args, *f.MinCents)
	}
	if f.MaxCents != nil {
		c.where = append(c.where, "t.amount_cents <= ?")
		c.args = append(c.args, *f.MaxCents)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		c.where = append(c.where, `(t.note LIKE ? ESCAPE '\' OR c.name LIKE ? ESCAPE '\')`)
		c.args = append(c.args, pattern, pattern)
	}

	orderBy, err := compileOrder(f.SortBy, f.SortDir)
	if err != nil {
		return compiledFilter{}, err
	}
	c.orderBy = orderBy

	return c, nil
}

func compileOrder(sortBy, sortDir string) (string, error) {
	if sortBy == "" {
		sortBy = "date"
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidSort, sortBy)
	}

	direction := "DESC"
	switch sortDir {
	case "", "desc":
	case "asc":
		direction = "ASC"
	default:
		return "", fmt.Errorf("%w: direction %q", core.ErrInvalidSort, sortDir)
	}

	// t.id breaks ties so pages never overlap or skip rows
	return fmt.Sprintf("%s %s, t.id %s", column, direction, direction), nil
}

// escapeLike neutralizes LIKE metacharacters in user input. The backslash
// must go first.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
