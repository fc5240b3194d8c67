package accountauth

import "github.com/MrEthical07/accountauth/internal/security"

type SecurityReport = security.Report

// SecurityReport summarises the effective configuration of e.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	c := e.config
	return security.BuildReport(security.ReportInput{
		ProductionMode:   c.Security.ProductionMode,
		AccessTTL:        c.JWT.AccessTTL,
		RefreshTTL:       c.JWT.RefreshTTL,
		BcryptCost:       c.Password.BcryptCost,
		CodeTTL:          c.Verification.CodeTTL,
		CodeLength:       c.Verification.CodeLength,
		DurableSecondary: e.purger != nil,
		RateLimitEnabled: c.RateLimit.Enabled,
		RateLimits: []int{
			c.RateLimit.EmailSendPerIP.Limit,
			c.RateLimit.EmailVerifyPerEmail.Limit,
			c.RateLimit.SignupPerIP.Limit,
			c.RateLimit.LoginPerIP.Limit,
			c.RateLimit.LoginPerEmail.Limit,
			c.RateLimit.RefreshPerIP.Limit,
		},
		MinResponseTime:   c.Security.MinResponseTime,
		AuditEnabled:      c.Audit.Enabled,
		MetricsEnabled:    c.Metrics.Enabled,
		LatencyHistograms: c.Metrics.EnableLatencyHistograms,
	})
}
