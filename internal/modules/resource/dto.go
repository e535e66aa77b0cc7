package resource

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"strings"

	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/repository"
)

// Input is a create or partial update. Nil fields are absent from the request.
type Input struct {
	Name        *string             `json:"name" validate:"omitempty,max=200"`
	Description *string             `json:"description" validate:"omitempty,max=5000"`
	Location    *string             `json:"location" validate:"omitempty,max=255"`
	Hours       *string             `json:"hours" validate:"omitempty,max=255"`
	Category    *string             `json:"category" validate:"omitempty,max=100"`
	Coordinates *domain.Coordinates `json:"coordinates"`

	Image *multipart.FileHeader `json:"-"`

	// ClearCoordinates is set when coordinates were sent as null or blank.
	ClearCoordinates bool `json:"-"`
}

// UnmarshalJSON tells an explicit "coordinates": null apart from an absent key.
func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	if err := json.Unmarshal(data, (*plain)(in)); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["coordinates"]; ok && in.Coordinates == nil {
		in.ClearCoordinates = bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	}
	return nil
}

func (in *Input) normalize() {
	for _, p := range []*string{in.Name, in.Description, in.Location, in.Hours, in.Category} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

// validate checks the fields that are present. Name is mandatory on create
// and may not be blanked on update.
func (in *Input) validate(creating bool) error {
	fields := validator.FieldErrors{}
	for name, rule := range validator.Validate(in) {
		fields[name] = rule
	}

	if (in.Name == nil && creating) || (in.Name != nil && *in.Name == "") {
		fields["name"] = "required"
	}
	if in.Coordinates != nil && !in.Coordinates.Valid() {
		fields["coordinates"] = "range"
	}

	if len(fields) > 0 {
		return fields
	}
	return nil
}

func (in *Input) changes() repository.ResourceChanges {
	return repository.ResourceChanges{
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		Hours:       in.Hours,
		Category:    in.Category,
		Coordinates: in.Coordinates,

		ClearCoordinates: in.ClearCoordinates && in.Coordinates == nil,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
