package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type validatedConfig struct {
	Name   string `validate:"required"`
	Access string `validate:"oneof=public restricted"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(validatedConfig{Name: "a", Access: "public"}))

	err := Validate(validatedConfig{Access: "private"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validatedConfig.Name: failed required")
	assert.Contains(t, err.Error(), "validatedConfig.Access: failed oneof=public restricted")
}
