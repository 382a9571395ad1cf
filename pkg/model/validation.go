package model

import (
	"fmt"
	"strings"

	"github.com/gorhill/cronexpr"
)

// ValidateRecipientDomains checks every To/CC/BCC address against the
// allowed domains. Entries may be exact ("example.com") or wildcards
// ("*.example.com", which also admits the bare domain). An empty list allows all.
func ValidateRecipientDomains(recipients Recipients, allowedDomains []string) error {
	policy := newDomainPolicy(allowedDomains)
	if policy == nil {
		return nil
	}
	for _, list := range [][]string{recipients.To, recipients.CC, recipients.BCC} {
		for _, addr := range list {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			domain, ok := emailDomain(addr)
			if !ok {
				return fmt.Errorf("invalid email address format: %s", addr)
			}
			if !policy.allows(domain) {
				return fmt.Errorf("recipient %s: domain %q is not in the allowed list %v", addr, domain, allowedDomains)
			}
		}
	}
	return nil
}

type domainPolicy struct {
	exact    map[string]bool
	suffixes []string
}

func newDomainPolicy(allowed []string) *domainPolicy {
	if len(allowed) == 0 {
		return nil
	}
	p := &domainPolicy{exact: make(map[string]bool, len(allowed))}
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimSpace(d))
		if base, ok := strings.CutPrefix(d, "*."); ok {
			p.exact[base] = true
			p.suffixes = append(p.suffixes, "."+base)
			continue
		}
		p.exact[d] = true
	}
	return p
}

func (p *domainPolicy) allows(domain string) bool {
	if p.exact[domain] {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}

// emailDomain returns the lower-cased domain of a local@domain address.
func emailDomain(addr string) (string, bool) {
	local, domain, found := strings.Cut(addr, "@")
	if !found || local == "" || strings.Contains(domain, "@") {
		return "", false
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	return domain, domain != ""
}

// ValidateCronExpression validates a cron expression format.
func ValidateCronExpression(cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}

	_, err := cronexpr.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression '%s': %v", cronExpr, err)
	}

	return nil
}

// ValidateReport checks the fields the content store relies on.
// Unknown section types are accepted here; they are skipped at render time.
func ValidateReport(report *Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if strings.TrimSpace(report.Title) == "" {
		return fmt.Errorf("report title cannot be empty")
	}
	for i, section := range report.Sections {
		if strings.TrimSpace(string(section.Type)) == "" {
			return fmt.Errorf("section %d has no type", i)
		}
	}
	return nil
}

// ValidateSchedule validates an export schedule before it is stored.
func ValidateSchedule(schedule *Schedule, limits *Limits) error {
	if strings.TrimSpace(schedule.Name) == "" {
		return fmt.Errorf("schedule name cannot be empty")
	}
	if strings.TrimSpace(schedule.ReportID) == "" {
		return fmt.Errorf("schedule must reference a report")
	}
	if schedule.CronExpr != "" {
		if err := ValidateCronExpression(schedule.CronExpr); err != nil {
			return err
		}
	}
	if limits == nil {
		return nil
	}
	total := len(schedule.Recipients.To) + len(schedule.Recipients.CC) + len(schedule.Recipients.BCC)
	if limits.MaxRecipients > 0 && total > limits.MaxRecipients {
		return fmt.Errorf("too many recipients: %d (max %d)", total, limits.MaxRecipients)
	}
	return ValidateRecipientDomains(schedule.Recipients, limits.AllowedDomains)
}
