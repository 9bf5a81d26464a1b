package member

import (
	"time"

	"github.com/google/uuid"
)

// A factory to build a Member from the incoming DTO. The request is assumed
// to have passed binding, so the date strings parse.
func NewFromCreateRequest(req CreateMemberRequest) Member {
	now := time.Now().UTC()

	birth, _ := ParseDate(req.BirthDate)

	join := Date{now}
	if req.JoinDate != nil {
		join, _ = ParseDate(*req.JoinDate)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var total float64
	if req.TotalAmountReceived != nil {
		total = *req.TotalAmountReceived
	}

	return Member{
		ID:                  uuid.NewString(),
		Name:                req.Name,
		Email:               req.Email,
		BirthDate:           birth,
		Address:             req.Address,
		City:                req.City,
		PostalCode:          req.PostalCode,
		Phone:               req.Phone,
		JoinDate:            join,
		Active:              active,
		TotalAmountReceived: total,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
