package member

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar day without a time component. It marshals as
// "YYYY-MM-DD" and round-trips through a Postgres DATE column.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)

	if err != nil {
		return Date{}, err
	}

	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)

	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}

	t, err := time.Parse(dateLayout, s)

	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}

	*d = Date{t}
	return nil
}

// Scan and Value let pgx move Date through its database/sql fallback.

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date{v}
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

type Member struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	BirthDate           Date      `json:"birthDate"`
	Address             string    `json:"address"`
	City                string    `json:"city"`
	PostalCode          string    `json:"postalCode"`
	Phone               *string   `json:"phone,omitempty"`
	JoinDate            Date      `json:"joinDate"`
	Active              bool      `json:"active"`
	TotalAmountReceived float64   `json:"totalAmountReceived"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

var (
	ErrNotFound   = errors.New("member not found")
	ErrEmailTaken = errors.New("member email already taken")
)

type CreateMemberRequest struct {
	Name                string   `json:"name" binding:"required,min=2,max=120"`
	Email               string   `json:"email" binding:"required,email"`
	BirthDate           string   `json:"birthDate" binding:"required,datetime=2006-01-02"`
	Address             string   `json:"address" binding:"required,max=200"`
	City                string   `json:"city" binding:"required,max=80"`
	PostalCode          string   `json:"postalCode" binding:"required,max=16"`
	Phone               *string  `json:"phone" binding:"omitempty,max=32"`
	JoinDate            *string  `json:"joinDate" binding:"omitempty,datetime=2006-01-02"`
	Active              *bool    `json:"active"`
	TotalAmountReceived *float64 `json:"totalAmountReceived" binding:"omitempty,gte=0"`
}

// Partial update: only non-nil fields are written.
type UpdateMemberRequest struct {
	Name                *string  `json:"name" binding:"omitempty,min=2,max=120"`
	Email               *string  `json:"email" binding:"omitempty,email"`
	BirthDate           *string  `json:"birthDate" binding:"omitempty,datetime=2006-01-02"`
	Address             *string  `json:"address" binding:"omitempty,max=200"`
	City                *string  `json:"city" binding:"omitempty,max=80"`
	PostalCode          *string  `json:"postalCode" binding:"omitempty,max=16"`
	Phone               *string  `json:"phone" binding:"omitempty,max=32"`
	JoinDate            *string  `json:"joinDate" binding:"omitempty,datetime=2006-01-02"`
	Active              *bool    `json:"active"`
	TotalAmountReceived *float64 `json:"totalAmountReceived" binding:"omitempty,gte=0"`
}

// with pointers if optional, it will be nil
type ListMembersFilter struct {
	Name      *string
	BirthDate *Date
	Limit     int
}
