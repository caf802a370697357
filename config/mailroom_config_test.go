package config

import "testing"

func TestLoadIMAPStartTLS(t *testing.T) {
	t.Setenv("IMAP_STARTTLS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.IMAPStartTLS {
		t.Error("IMAP_STARTTLS=true should enable STARTTLS")
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback bool
		expected bool
	}{
		{"true", "true", false, true},
		{"numeric true", "1", false, true},
		{"false", "false", true, false},
		{"unset uses fallback", "", true, true},
		{"garbage uses fallback", "yep", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_BOOL_FLAG", tt.value)
			}
			if got := getEnvBool("TEST_BOOL_FLAG", tt.fallback); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
