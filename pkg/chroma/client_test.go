package chroma

import "testing"

func TestDocumentIDRoundTrip(t *testing.T) {
	tests := []struct {
		userID  string
		emailID string
	}{
		{"u1", "m1"},
		{"user-2", "imap-42"},
		{"u3", "email_1700000000000_abc:def"},
	}
	for _, tt := range tests {
		id := documentID(tt.userID, tt.emailID)
		if got := EmailIDFromDocument(tt.userID, id); got != tt.emailID {
			t.Errorf("round trip of %q/%q = %q", tt.userID, tt.emailID, got)
		}
	}
}
