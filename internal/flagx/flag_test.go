package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-s", "-d"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate values",
			args: []string{"-s", "secret", "-x", "1", "-d", "dsn"},
			want: []string{"-s", "secret", "-d", "dsn"},
		},
		{
			name: "equals form",
			args: []string{"-s=secret", "-x=1"},
			want: []string{"-s=secret"},
		},
		{
			name: "unknown only",
			args: []string{"-test.v", "-test.run", "TestX", "positional"},
			want: []string{},
		},
		{
			name: "trailing flag without value",
			args: []string{"-s"},
			want: []string{"-s"},
		},
		{
			name: "value looks like a flag",
			args: []string{"-s", "-d", "dsn"},
			want: []string{"-s", "-d", "dsn"},
		},
		{
			name: "equals value may contain dashes",
			args: []string{"-d=postgres://u:p@h/db?x=-1"},
			want: []string{"-d=postgres://u:p@h/db?x=-1"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short", args: []string{"-c", "a.json"}, want: "a.json"},
		{name: "long", args: []string{"-config", "b.json"}, want: "b.json"},
		{name: "long equals", args: []string{"-config=c.json"}, want: "c.json"},
		{name: "mixed with others", args: []string{"-a", ":8080", "-c", "d.json", "-s", "x"}, want: "d.json"},
		{name: "absent", args: []string{"-a", ":8080"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFilePath(tt.args))
		})
	}
}
