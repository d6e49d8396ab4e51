package handler

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidatorsNotBlank(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerValidators(v))

	type request struct {
		Name string `validate:"notblank"`
	}
	assert.Error(t, v.Struct(request{Name: " \t "}))
	assert.NoError(t, v.Struct(request{Name: "Kadıköy"}))
}

func TestRegisterValidatorsReportsFailure(t *testing.T) {
	customValidators[""] = func(validator.FieldLevel) bool { return true }
	defer delete(customValidators, "")

	err := registerValidators(validator.New())
	assert.Error(t, err)
}
