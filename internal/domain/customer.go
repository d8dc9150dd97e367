package domain

import "strings"

const DefaultCountry = "India"

// CustomerInfo is the delivery form of a single checkout attempt.
type CustomerInfo struct {
	FirstName string `json:"first_name" validate:"filled"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"filled,shopper_email"`
	Phone     string `json:"phone" validate:"filled,in_phone"`
	Address   string `json:"address" validate:"filled"`
	City      string `json:"city" validate:"filled"`
	State     string `json:"state"`
	Pincode   string `json:"pincode" validate:"filled,in_pincode"`
	Country   string `json:"country"`
}

// Customer form field names, as they appear on the wire.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldAddress   = "address"
	FieldCity      = "city"
	FieldState     = "state"
	FieldPincode   = "pincode"
	FieldCountry   = "country"
)

// NewCustomerInfo returns an empty form with the fixed country filled in.
func NewCustomerInfo() CustomerInfo {
	return CustomerInfo{Country: DefaultCountry}
}

// Set assigns one form field by wire name.
func (c *CustomerInfo) Set(field, value string) error {
	switch field {
	case FieldFirstName:
		c.FirstName = value
	case FieldLastName:
		c.LastName = value
	case FieldEmail:
		c.Email = value
	case FieldPhone:
		c.Phone = value
	case FieldAddress:
		c.Address = value
	case FieldCity:
		c.City = value
	case FieldState:
		c.State = value
	case FieldPincode:
		c.Pincode = value
	case FieldCountry:
		// single supported country
	default:
		return &UnknownFieldError{Field: field}
	}
	return nil
}

// Fields returns the form values keyed by wire name.
func (c CustomerInfo) Fields() map[string]string {
	return map[string]string{
		FieldFirstName: c.FirstName,
		FieldLastName:  c.LastName,
		FieldEmail:     c.Email,
		FieldPhone:     c.Phone,
		FieldAddress:   c.Address,
		FieldCity:      c.City,
		FieldState:     c.State,
		FieldPincode:   c.Pincode,
		FieldCountry:   c.Country,
	}
}

func (c CustomerInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
