package types

import (
	"fmt"
	"strings"
)

// Address is a postal address captured on orders and user profiles.
type Address struct {
	FirstName string  `json:"first_name" validate:"required,max=100" gorm:"column:first_name"`
	LastName  string  `json:"last_name" validate:"required,max=100" gorm:"column:last_name"`
	Line1     string  `json:"line1" validate:"required,max=255" gorm:"column:address_line1"`
	Line2     *string `json:"line2,omitempty" validate:"omitempty,max=255" gorm:"column:address_line2"`
	City      string  `json:"city" validate:"required,max=100" gorm:"column:city"`
	State     string  `json:"state" validate:"required,max=100" gorm:"column:state"`
	Country   string  `json:"country" validate:"required,max=100" gorm:"column:country"`
	ZipCode   string  `json:"zip_code" validate:"required,max=20" gorm:"column:zip_code"`
}

// Normalize trims whitespace and drops an empty second line.
func (a Address) Normalize() Address {
	out := Address{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Line1:     strings.TrimSpace(a.Line1),
		City:      strings.TrimSpace(a.City),
		State:     strings.TrimSpace(a.State),
		Country:   strings.TrimSpace(a.Country),
		ZipCode:   strings.TrimSpace(a.ZipCode),
	}
	if a.Line2 != nil {
		if line2 := strings.TrimSpace(*a.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	return out
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"country", a.Country},
		{"zip_code", a.ZipCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("address: missing %s", field.name)
		}
	}
	return nil
}

// IsZero reports whether no address field was provided.
func (a Address) IsZero() bool {
	return a.Normalize() == Address{}
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Full renders the address on a single line.
func (a Address) Full() string {
	parts := []string{a.Line1}
	if a.Line2 != nil && strings.TrimSpace(*a.Line2) != "" {
		parts = append(parts, *a.Line2)
	}
	parts = append(parts, a.City, fmt.Sprintf("%s %s", a.State, a.ZipCode), a.Country)
	return strings.Join(parts, ", ")
}
