package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Ordering is a list sort key. A leading "-" sorts descending.
type Ordering string

const DefaultOrdering Ordering = "-created_at"

const maxSearchLen = 100

var orderings = map[Ordering]pagination.Sort{
	"created_at":    {Column: "created_at"},
	"-created_at":   {Column: "created_at", Desc: true},
	"updated_at":    {Column: "updated_at"},
	"-updated_at":   {Column: "updated_at", Desc: true},
	"total_amount":  {Column: "total_amount", Numeric: true},
	"-total_amount": {Column: "total_amount", Desc: true, Numeric: true},
}

// ParseOrdering validates raw. Blank input yields DefaultOrdering.
func ParseOrdering(raw string) (Ordering, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultOrdering, nil
	}
	o := Ordering(raw)
	if _, ok := orderings[o]; !ok {
		return "", fmt.Errorf("unsupported ordering %q", raw)
	}
	return o, nil
}

func (o Ordering) sort() pagination.Sort {
	if s, ok := orderings[o]; ok {
		return s
	}
	return pagination.NewestFirst
}

func (o Ordering) cursor(row models.Order) pagination.Cursor {
	switch o.sort().Column {
	case "updated_at":
		return pagination.Cursor{At: row.UpdatedAt, ID: row.ID}
	case "total_amount":
		return pagination.Cursor{Amount: row.TotalAmount, Numeric: true, ID: row.ID}
	}
	return pagination.Cursor{At: row.CreatedAt, ID: row.ID}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPattern turns free text into a case-insensitive LIKE pattern.
func searchPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

const searchClause = `(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(customer_email) LIKE ? ESCAPE '\' OR LOWER(shipping_first_name) LIKE ? ESCAPE '\' OR LOWER(shipping_last_name) LIKE ? ESCAPE '\')`
