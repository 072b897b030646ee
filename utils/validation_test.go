package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUsername(t *testing.T) {
	valid := []string{"alice", "Bob123", "user@name", "a", "abcdefghijkl"}
	for _, username := range valid {
		assert.True(t, ValidUsername(username), username)
	}

	invalid := []string{"", "thirteenchars", "with space", "semi;colon", "star*name", "tab\tname"}
	for _, username := range invalid {
		assert.False(t, ValidUsername(username), username)
	}
}

func TestValidPassword(t *testing.T) {
	valid := []string{"secret", "p@ssw0rd", "star*pass", "a"}
	for _, password := range valid {
		assert.True(t, ValidPassword(password), password)
	}

	invalid := []string{"", "thirteenchars", "with space", "hy-phen"}
	for _, password := range invalid {
		assert.False(t, ValidPassword(password), password)
	}
}
