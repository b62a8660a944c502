package checkout

import (
	"errors"
	"strings"
)

var ErrMissingField = errors.New("required field missing")

type Customer struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// ValidationError lists every missing mandatory field
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrMissingField }

func (c Customer) normalized() Customer {
	return Customer{
		Email:   strings.TrimSpace(c.Email),
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		City:    strings.TrimSpace(c.City),
		Country: strings.TrimSpace(c.Country),
	}
}

// Validate requires email, name and phone
func (c Customer) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
