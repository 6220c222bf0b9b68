package entity

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

var validate = validator.New()

// ScheduledCollectionTask is the payload delivered by a collection schedule
// firing. It is consumed once per delivery; at-least-once delivery upstream
// means the same task can arrive more than once.
type ScheduledCollectionTask struct {
	LeaseID           string `json:"leaseId" validate:"required,uuid4"`
	UserEmail         string `json:"userEmail" validate:"required,max=254,printascii,email"`
	AccountID         string `json:"accountId" validate:"required,len=12,number"`
	LeaseEndTimestamp string `json:"leaseEndTimestamp" validate:"required"`
	ScheduleName      string `json:"scheduleName" validate:"omitempty,max=64"`
}

// Validate checks the task payload before any external call is made.
// The printascii constraint on the email blocks control characters and
// non-ASCII homographs from reaching logs or downstream lookups.
func (t ScheduledCollectionTask) Validate() error {
	verrs := structErrors(t)
	if t.LeaseEndTimestamp != "" {
		if _, err := time.Parse(time.RFC3339, t.LeaseEndTimestamp); err != nil {
			verrs = append(verrs, types.ValidationError{
				Field:  "leaseEndTimestamp",
				Value:  t.LeaseEndTimestamp,
				Reason: "must be a valid ISO-8601 timestamp",
			})
		}
	}
	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

// LeaseExpiredEvent triggers scheduling of a future cost collection.
type LeaseExpiredEvent struct {
	LeaseID           string `json:"leaseId" validate:"required,uuid4"`
	UserEmail         string `json:"userEmail" validate:"required,max=254,printascii,email"`
	AccountID         string `json:"accountId" validate:"required,len=12,number"`
	LeaseEndTimestamp string `json:"leaseEndTimestamp" validate:"required"`
}

// Validate checks the event payload.
func (e LeaseExpiredEvent) Validate() error {
	verrs := structErrors(e)
	if e.LeaseEndTimestamp != "" {
		if _, err := time.Parse(time.RFC3339, e.LeaseEndTimestamp); err != nil {
			verrs = append(verrs, types.ValidationError{
				Field:  "leaseEndTimestamp",
				Value:  e.LeaseEndTimestamp,
				Reason: "must be a valid ISO-8601 timestamp",
			})
		}
	}
	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

// structErrors converte os erros do validator em erros qualificados por campo.
func structErrors(v interface{}) types.ValidationErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.ValidationErrors{{Field: "payload", Value: "", Reason: err.Error()}}
	}
	verrs := make(types.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		verrs = append(verrs, types.ValidationError{
			Field:  fe.Field(),
			Value:  fmt.Sprintf("%v", fe.Value()),
			Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
		})
	}
	return verrs
}
