package delivery

import (
	"strings"

	"github.com/google/uuid"
)

// FilterOrders applies the listing filters: a case-insensitive substring
// search over customer name, email and project title, and an exact status
// match. Empty values disable the respective filter. Input order is kept.
func FilterOrders(orders []Order, search string, status OrderStatus) []Order {
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(o.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(o.CustomerEmail), needle) &&
			!strings.Contains(strings.ToLower(o.ProjectTitle), needle) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// OrderIDs returns the ids of orders in order.
func OrderIDs(orders []Order) []uuid.UUID {
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
