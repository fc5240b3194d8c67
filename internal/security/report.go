// Package security summarises the effective security posture of a built
// engine so deployments can log it once at startup.
package security

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type RateLimitReport struct {
	Active         bool
	BucketsEnabled int
}

type Report struct {
	ProductionMode          bool
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	BcryptCost              int
	CodeTTL                 time.Duration
	CodeLength              int
	DurableSecondary        bool
	BlacklistFailClosed     bool
	RateLimits              RateLimitReport
	MinResponseTime         time.Duration
	AuditEnabled            bool
	LatencyHistogramsActive bool
}

type ReportInput struct {
	ProductionMode    bool
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	BcryptCost        int
	CodeTTL           time.Duration
	CodeLength        int
	DurableSecondary  bool
	RateLimitEnabled  bool
	RateLimits        []int
	MinResponseTime   time.Duration
	AuditEnabled      bool
	MetricsEnabled    bool
	LatencyHistograms bool
}

// BuildReport derives a Report from input. RateLimits holds the configured
// limit of every bucket; a zero limit leaves that bucket unthrottled.
func BuildReport(input ReportInput) Report {
	buckets := 0
	if input.RateLimitEnabled {
		for _, limit := range input.RateLimits {
			if limit > 0 {
				buckets++
			}
		}
	}

	return Report{
		ProductionMode:          input.ProductionMode,
		SigningAlgorithm:        "HS256",
		AccessTTL:               input.AccessTTL,
		RefreshTTL:              input.RefreshTTL,
		BcryptCost:              input.BcryptCost,
		CodeTTL:                 input.CodeTTL,
		CodeLength:              input.CodeLength,
		DurableSecondary:        input.DurableSecondary,
		BlacklistFailClosed:     true,
		RateLimits:              RateLimitReport{Active: buckets > 0, BucketsEnabled: buckets},
		MinResponseTime:         input.MinResponseTime,
		AuditEnabled:            input.AuditEnabled,
		LatencyHistogramsActive: input.MetricsEnabled && input.LatencyHistograms,
	}
}

// MarshalLogObject lets a Report be logged with zap.Object.
func (r Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("production_mode", r.ProductionMode)
	enc.AddString("signing_algorithm", r.SigningAlgorithm)
	enc.AddDuration("access_ttl", r.AccessTTL)
	enc.AddDuration("refresh_ttl", r.RefreshTTL)
	enc.AddInt("bcrypt_cost", r.BcryptCost)
	enc.AddDuration("code_ttl", r.CodeTTL)
	enc.AddInt("code_length", r.CodeLength)
	enc.AddBool("durable_secondary", r.DurableSecondary)
	enc.AddBool("blacklist_fail_closed", r.BlacklistFailClosed)
	enc.AddInt("rate_limit_buckets", r.RateLimits.BucketsEnabled)
	enc.AddDuration("min_response_time", r.MinResponseTime)
	enc.AddBool("audit", r.AuditEnabled)
	enc.AddBool("latency_histograms", r.LatencyHistogramsActive)
	return nil
}

// Field is shorthand for zap.Object("security", r).
func (r Report) Field() zap.Field {
	return zap.Object("security", r)
}
