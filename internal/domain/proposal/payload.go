package proposal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"helpem-go/internal/domain/tribe"
)

// Category payloads form a tagged union keyed by the item type. Each variant
// is validated at the creation boundary; nothing downstream trusts raw JSON.

type TaskPayload struct {
	Title   string     `json:"title" validate:"required,max=500"`
	Notes   string     `json:"notes,omitempty" validate:"max=2000"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

type RoutinePayload struct {
	Title     string `json:"title" validate:"required,max=500"`
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	TimesPer  int    `json:"times_per_period,omitempty" validate:"omitempty,min=1,max=50"`
}

type AppointmentPayload struct {
	Title    string     `json:"title" validate:"required,max=500"`
	StartsAt time.Time  `json:"starts_at" validate:"required"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Location string     `json:"location,omitempty" validate:"max=500"`
}

type GroceryPayload struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity,omitempty" validate:"omitempty,min=1,max=1000"`
	Unit     string `json:"unit,omitempty" validate:"max=32"`
}

// DecodePayload parses and validates the raw payload for the given category
// and returns it re-marshalled in normalized form.
func DecodePayload(validate *validator.Validate, category tribe.Category, raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is required")
	}

	var target any
	switch category {
	case tribe.CategoryTask:
		target = &TaskPayload{}
	case tribe.CategoryRoutine:
		target = &RoutinePayload{}
	case tribe.CategoryAppointment:
		target = &AppointmentPayload{}
	case tribe.CategoryGrocery:
		target = &GroceryPayload{}
	default:
		return nil, ErrInvalidItemType
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", category, err)
	}
	if err := validate.Struct(target); err != nil {
		return nil, fmt.Errorf("validate %s payload: %w", category, err)
	}

	normalized, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}
