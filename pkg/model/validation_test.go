package model

import (
	"strings"
	"testing"
)

func TestValidateRecipientDomains(t *testing.T) {
	tests := []struct {
		name           string
		recipients     Recipients
		allowedDomains []string
		expectError    bool
		errorContains  string
	}{
		{
			name:           "empty whitelist allows all domains",
			recipients:     Recipients{To: []string{"user@example.com", "admin@company.org"}},
			allowedDomains: []string{},
		},
		{
			name: "exact match across to, cc and bcc",
			recipients: Recipients{
				To:  []string{"user1@example.com"},
				CC:  []string{"cc@example.com"},
				BCC: []string{"bcc@example.com"},
			},
			allowedDomains: []string{"example.com"},
		},
		{
			name:           "wildcard matches nested subdomains and the base domain",
			recipients:     Recipients{To: []string{"user@example.com", "user@dev.staging.example.com"}},
			allowedDomains: []string{"*.example.com"},
		},
		{
			name:           "bcc recipient outside whitelist",
			recipients:     Recipients{To: []string{"user@example.com"}, BCC: []string{"leak@forbidden.com"}},
			allowedDomains: []string{"example.com"},
			expectError:    true,
			errorContains:  "forbidden.com",
		},
		{
			name:           "invalid email format",
			recipients:     Recipients{To: []string{"not-an-email"}},
			allowedDomains: []string{"example.com"},
			expectError:    true,
			errorContains:  "invalid email",
		},
		{
			name:           "blank entries and surrounding spaces are tolerated",
			recipients:     Recipients{To: []string{"", "  User@Example.COM  "}},
			allowedDomains: []string{"example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecipientDomains(tt.recipients, tt.allowedDomains)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error message '%s' does not contain '%s'", err.Error(), tt.errorContains)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDomainPolicy(t *testing.T) {
	tests := []struct {
		domain  string
		allowed []string
		want    bool
	}{
		{"example.com", []string{"example.com"}, true},
		{"example.com", []string{" Example.COM "}, true},
		{"sub.example.com", []string{"*.example.com"}, true},
		{"example.com", []string{"*.example.com"}, true},
		{"notexample.com", []string{"*.example.com"}, false},
		{"sub.other.com", []string{"example.com", "*.other.com"}, true},
		{"sub.example.com", []string{"example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			if got := newDomainPolicy(tt.allowed).allows(tt.domain); got != tt.want {
				t.Errorf("allows(%q) with %v = %v, want %v", tt.domain, tt.allowed, got, tt.want)
			}
		})
	}

	if newDomainPolicy(nil) != nil {
		t.Error("empty allow list should produce no policy")
	}
}

func TestEmailDomain(t *testing.T) {
	tests := map[string]string{
		"user@Example.COM": "example.com",
		"not-an-email":     "",
		"@example.com":     "",
		"a@b@example.com":  "",
		"user@":            "",
	}
	for in, want := range tests {
		got, ok := emailDomain(in)
		if got != want || ok != (want != "") {
			t.Errorf("emailDomain(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}

func TestValidateCronExpression(t *testing.T) {
	valid := []string{"0 0 * * *", "0 0 * * 1", "0 0 1 * *", "*/15 * * * *"}
	for _, expr := range valid {
		if err := ValidateCronExpression(expr); err != nil {
			t.Errorf("ValidateCronExpression(%q) unexpected error: %v", expr, err)
		}
	}

	if err := ValidateCronExpression(""); err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("expected empty-expression error, got %v", err)
	}
	if err := ValidateCronExpression("invalid cron"); err == nil || !strings.Contains(err.Error(), "invalid cron expression") {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func TestValidateReport(t *testing.T) {
	tests := []struct {
		name        string
		report      *Report
		expectError bool
	}{
		{name: "nil report", report: nil, expectError: true},
		{name: "blank title", report: &Report{Title: "  "}, expectError: true},
		{name: "no sections is fine", report: &Report{Title: "Q3 outlook"}},
		{
			name: "section without type",
			report: &Report{Title: "Q3 outlook", Sections: SectionList{
				{Type: SectionTitle},
				{Heading: "orphan"},
			}},
			expectError: true,
		},
		{
			name: "unknown types are accepted",
			report: &Report{Title: "Q3 outlook", Sections: SectionList{
				{Type: SectionTitle},
				{Type: "quote"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReport(tt.report)
			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	base := func() *Schedule {
		return &Schedule{
			Name:       "Weekly deck",
			ReportID:   "r-1",
			Recipients: Recipients{To: []string{"a@example.com", "b@example.com"}},
		}
	}

	if err := ValidateSchedule(base(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := base()
	s.ReportID = ""
	if err := ValidateSchedule(s, nil); err == nil {
		t.Errorf("expected error for missing report id")
	}

	s = base()
	s.CronExpr = "not a cron"
	if err := ValidateSchedule(s, nil); err == nil {
		t.Errorf("expected error for bad cron expression")
	}

	if err := ValidateSchedule(base(), &Limits{MaxRecipients: 1}); err == nil || !strings.Contains(err.Error(), "too many recipients") {
		t.Errorf("expected recipient limit error, got %v", err)
	}

	if err := ValidateSchedule(base(), &Limits{AllowedDomains: []string{"other.com"}}); err == nil {
		t.Errorf("expected domain whitelist error")
	}
}

func TestSectionListScan(t *testing.T) {
	var list SectionList
	if err := list.Scan(`[{"type":"title","heading":"Hello"},{"type":"content"}]`); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(list) != 2 || list[0].Type != SectionTitle || list[0].Heading != "Hello" {
		t.Errorf("unexpected sections: %+v", list)
	}

	if err := list.Scan(nil); err != nil || len(list) != 0 {
		t.Errorf("Scan(nil) = %v, len %d", err, len(list))
	}
}
