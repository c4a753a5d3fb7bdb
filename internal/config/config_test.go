package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawsec/core/internal/errs"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNegativeSpendLimit(t *testing.T) {
	cfg := Default()
	cfg.Rules.Purchase.SpendLimits.PerTransaction = -1
	err := cfg.Validate()
	require.Error(t, err)
	var cerr *errs.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestValidateRejectsUnknownSeverity(t *testing.T) {
	cfg := Default()
	cfg.Rules.Secrets.Severity = "extreme"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownAction(t *testing.T) {
	cfg := Default()
	cfg.Rules.Website.Action = "ignore"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Rules.Website.Mode = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsSanitizationMinConfidenceOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Rules.Sanitization.MinConfidence = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeVersion(t *testing.T) {
	cfg := Default()
	cfg.Version = "2.5.0"
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsBareMinorVersion(t *testing.T) {
	cfg := Default()
	cfg.Version = "1.2"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsMalformedWebhookURL(t *testing.T) {
	cfg := Default()
	cfg.Approval.Webhook.Enabled = true
	cfg.Approval.Webhook.URL = "not-a-url"
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedWebhookURL(t *testing.T) {
	cfg := Default()
	cfg.Approval.Webhook.Enabled = true
	cfg.Approval.Webhook.URL = "https://hooks.example.com/callback"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownLedgerDriver(t *testing.T) {
	cfg := Default()
	cfg.Backing.Ledger.Driver = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPostgresLedgerWithoutDSN(t *testing.T) {
	cfg := Default()
	cfg.Backing.Ledger.Driver = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsPostgresLedgerWithDSN(t *testing.T) {
	cfg := Default()
	cfg.Backing.Ledger.Driver = "postgres"
	cfg.Backing.Ledger.DSN = "postgres://localhost/clawsec"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsRedisCacheWithoutAddr(t *testing.T) {
	cfg := Default()
	cfg.Backing.Cache.Driver = "redis"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsS3ArchiveWithoutBucket(t *testing.T) {
	cfg := Default()
	cfg.Backing.Archive.Driver = "s3"
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsS3ArchiveWithBucket(t *testing.T) {
	cfg := Default()
	cfg.Backing.Archive.Driver = "s3"
	cfg.Backing.Archive.Bucket = "clawsec-archive"
	cfg.Backing.Archive.Region = "us-east-1"
	assert.NoError(t, cfg.Validate())
}
