package types

import "strings"

// Address is the billing/shipping contact block stored on an order. It is
// persisted as a JSON column so the same shape works on Postgres and the
// in-memory SQLite used by tests.
type Address struct {
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Street  string  `json:"street"`
	Street2 *string `json:"street2,omitempty"`
	City    string  `json:"city"`
	Zip     *string `json:"zip,omitempty"`
	State   *string `json:"state,omitempty"`
	Country string  `json:"country"`
}

// MissingFields returns the required fields that are empty or blank.
func (a Address) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(a.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	return missing
}

// IsComplete reports whether all required fields are present.
func (a Address) IsComplete() bool {
	return len(a.MissingFields()) == 0
}
