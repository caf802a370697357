package mailbox

import "testing"

func TestNewIMAPAdapterDefaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		expectedPort int
	}{
		{"implicit tls port", Config{Host: "mail.example.com"}, 993},
		{"starttls port", Config{Host: "mail.example.com", StartTLS: true}, 143},
		{"explicit port wins", Config{Host: "mail.example.com", Port: 1993, StartTLS: true}, 1993},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewIMAPAdapter(tt.cfg)
			if a.port != tt.expectedPort {
				t.Errorf("expected port %d, got %d", tt.expectedPort, a.port)
			}
			if a.folder != "INBOX" {
				t.Errorf("expected default folder INBOX, got %q", a.folder)
			}
			if a.batchLimit != 50 {
				t.Errorf("expected default batch limit 50, got %d", a.batchLimit)
			}
		})
	}
}
