package validator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
}

func TestValidate_NamesFieldsByJSONTag(t *testing.T) {
	errs := Validate(sample{Email: "nope", Rating: 9})

	assert.Equal(t, map[string]string{"email": "email", "rating": "lte"}, errs)
}

func TestValidate_OK(t *testing.T) {
	assert.Nil(t, Validate(sample{Email: "a@uw.edu", Rating: 3}))
}

func TestDescribe_JSONTypeError(t *testing.T) {
	var dst sample
	err := json.Unmarshal([]byte(`{"rating":"five"}`), &dst)

	assert.Equal(t, map[string]string{"rating": "type"}, Describe(err))
}

func TestDescribe_Unknown(t *testing.T) {
	assert.Equal(t, map[string]string{"body": "invalid"}, Describe(errors.New("EOF")))
}

func TestFieldErrors(t *testing.T) {
	var err error = FieldErrors{"rating": "range", "name": "required"}

	var fe FieldErrors
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, "invalid input: name: required, rating: range", err.Error())
}
