package core

import "strings"

// SearchMachines filters a machine snapshot by case-insensitive
// substring match on name and customer name. A whitespace-only term
// returns the snapshot unchanged. The filter is stable: result order
// preserves snapshot order.
func SearchMachines(machines []Machine, term string) []Machine {
	if strings.TrimSpace(term) == "" {
		return machines
	}
	needle := strings.ToLower(term)
	out := make([]Machine, 0, len(machines))
	for _, m := range machines {
		if strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.CustomerName), needle) {
			out = append(out, m)
		}
	}
	return out
}

// SearchCustomers filters a customer snapshot by case-insensitive
// substring match on name, or verbatim substring match on the VAT
// number. A whitespace-only term returns the snapshot unchanged.
func SearchCustomers(customers []Customer, term string) []Customer {
	if strings.TrimSpace(term) == "" {
		return customers
	}
	needle := strings.ToLower(term)
	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(c.VATNumber, term) {
			out = append(out, c)
		}
	}
	return out
}
