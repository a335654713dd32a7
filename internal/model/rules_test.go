package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhone(t *testing.T) {
	cases := map[string]bool{
		"13800138000":  true,
		"19912345678":  true,
		"12800138000":  false,
		"1380013800":   false,
		"138001380000": false,
		"1380013800a":  false,
	}
	for phone, want := range cases {
		assert.Equal(t, want, ValidPhone(phone), phone)
	}
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.com":         true,
		"first.last@x.cn": true,
		"a@b":             false,
		"bad-email":       false,
		"@b.com":          false,
	}
	for email, want := range cases {
		assert.Equal(t, want, ValidEmail(email), email)
	}
}
