package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReturnsStartupErrors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{name: "invalid port", key: "PORT", value: "0", want: "load config"},
		{name: "invalid mongo uri", key: "MONGO_URI", value: "bogus://127.0.0.1", want: "connect to mongo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			err := run()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
