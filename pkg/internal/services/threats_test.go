package services

import "testing"

func TestScanPollIDThreats(t *testing.T) {
	cases := []string{
		"<script>alert(1)</script>",
		"abc'; DROP TABLE poll_vote_log;--",
		"1 UNION SELECT password FROM users",
		"../../etc/passwd",
		"javascript:alert(1)",
		"id%00",
		"{{constructor}}",
		"has spaces in it",
	}

	for _, raw := range cases {
		if _, threat := ScanPollID(SanitizePollID(raw)); !threat {
			t.Errorf("expected %q to be flagged as a threat", raw)
		}
	}
}

func TestScanPollIDCleanIdentifiers(t *testing.T) {
	cases := []string{
		"550e8400-e29b-41d4-a716-446655440000",
		"municipal-budget-2026",
		"poll_42",
	}

	for _, id := range cases {
		if signature, threat := ScanPollID(id); threat {
			t.Errorf("expected %q to pass, got signature %q", id, signature)
		}
	}
}

func TestSanitizePollID(t *testing.T) {
	if got := SanitizePollID("  poll-1  "); got != "poll-1" {
		t.Errorf("SanitizePollID trimmed to %q", got)
	}

	long := make([]byte, 300)
	for idx := range long {
		long[idx] = 'a'
	}
	if got := SanitizePollID(string(long)); len(got) != 128 {
		t.Errorf("oversized identifier capped to %d characters, want 128", len(got))
	}
}
