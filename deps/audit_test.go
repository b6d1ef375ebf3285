package deps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/mocks"
	"github.com/l3montree-dev/devkit/utils"
)

func mockRunner(t *testing.T) *mocks.CommandRunner {
	runner := mocks.NewCommandRunner(t)
	old := utils.Runner
	utils.Runner = runner
	t.Cleanup(func() { utils.Runner = old })
	return runner
}

const npmAuditReport = `{
  "auditReportVersion": 2,
  "vulnerabilities": {
    "lodash": {
      "name": "lodash",
      "severity": "high",
      "range": "<=4.17.20",
      "via": [
        {
          "source": 1523,
          "name": "lodash",
          "title": "Command Injection in lodash",
          "url": "https://github.com/advisories/GHSA-35jh-r3h4-6jhm",
          "severity": "high",
          "range": "<4.17.21",
          "cvss": {"score": 0, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:H/UI:N/S:U/C:H/I:H/A:H"}
        }
      ],
      "fixAvailable": true
    },
    "express": {
      "name": "express",
      "severity": "moderate",
      "range": "<4.19.2",
      "via": ["qs", {
        "name": "express",
        "title": "Open Redirect in express",
        "url": "https://github.com/advisories/GHSA-rv95-896h-c2vc",
        "severity": "moderate",
        "range": "<4.19.2",
        "cvss": {"score": 6.1, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N"}
      }],
      "fixAvailable": {"name": "express", "version": "4.19.2", "isSemVerMajor": false}
    }
  }
}`

const pnpmAuditReport = `{
  "advisories": {
    "1096366": {
      "module_name": "semver",
      "severity": "medium",
      "title": "semver vulnerable to Regular Expression Denial of Service",
      "url": "https://github.com/advisories/GHSA-c2qf-rxjj-qqgw",
      "vulnerable_versions": "<5.7.2",
      "patched_versions": ">=5.7.2",
      "cvss": {"score": 5.3, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:L"}
    }
  }
}`

func TestParseAuditOutput(t *testing.T) {
	t.Run("should parse the npm v2 report", func(t *testing.T) {
		summary, err := ParseAuditOutput(NPM, []byte(npmAuditReport))
		require.NoError(t, err)

		require.Len(t, summary.Advisories, 2)
		lodash := summary.Advisories[0]
		assert.Equal(t, "lodash", lodash.Name)
		assert.Equal(t, SeverityHigh, lodash.Severity)
		assert.Equal(t, "<4.17.21", lodash.VulnerableRange)
		assert.True(t, lodash.FixAvailable)
		// score calculated from the vector
		assert.InDelta(t, 7.2, lodash.CVSSScore, 0.01)

		express := summary.Advisories[1]
		assert.Equal(t, "express", express.Name)
		assert.Equal(t, 6.1, express.CVSSScore)
		assert.True(t, express.FixAvailable)

		assert.Equal(t, 1, summary.Counts[SeverityHigh])
		assert.Equal(t, 1, summary.Counts[SeverityModerate])
		assert.Equal(t, 0, summary.Counts[SeverityCritical])
	})

	t.Run("should parse the pnpm report and map medium to moderate", func(t *testing.T) {
		summary, err := ParseAuditOutput(PNPM, []byte(pnpmAuditReport))
		require.NoError(t, err)

		require.Len(t, summary.Advisories, 1)
		assert.Equal(t, SeverityModerate, summary.Advisories[0].Severity)
		assert.Equal(t, "semver", summary.Advisories[0].Name)
		assert.True(t, summary.Advisories[0].FixAvailable)
	})

	t.Run("should parse yarn ndjson output", func(t *testing.T) {
		out := `{"type":"info","data":"starting"}
{"type":"auditAdvisory","data":{"advisory":{"module_name":"minimist","severity":"critical","title":"Prototype Pollution","url":"https://example.com","vulnerable_versions":"<1.2.6","patched_versions":">=1.2.6","cvss":{"score":9.8,"vectorString":""}}}}
{"type":"auditSummary","data":{}}`
		summary, err := ParseAuditOutput(Yarn, []byte(out))
		require.NoError(t, err)
		require.Len(t, summary.Advisories, 1)
		assert.Equal(t, SeverityCritical, summary.Advisories[0].Severity)
		assert.Equal(t, 1, summary.Total())
	})

	t.Run("should fail on invalid json", func(t *testing.T) {
		_, err := ParseAuditOutput(NPM, []byte("not json"))
		assert.Error(t, err)
	})
}

func TestAuditSummaryExceeds(t *testing.T) {
	summary := AuditSummary{Advisories: []Advisory{{Name: "a", Severity: SeverityModerate}}}

	assert.True(t, summary.Exceeds(SeverityLow))
	assert.True(t, summary.Exceeds(SeverityModerate))
	assert.False(t, summary.Exceeds(SeverityHigh))
	assert.False(t, AuditSummary{}.Exceeds(SeverityInfo))
}

func TestCVSSBaseScore(t *testing.T) {
	assert.InDelta(t, 9.8, CVSSBaseScore("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"), 0.01)
	assert.InDelta(t, 9.8, CVSSBaseScore("CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"), 0.01)
	assert.Equal(t, 0.0, CVSSBaseScore("CVSS:3.1/garbage"))
	assert.Equal(t, 0.0, CVSSBaseScore(""))
}

func TestAudit(t *testing.T) {
	t.Run("should not fail on a non-zero exit code", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, utils.CommandOptions{Name: "npm", Args: []string{"audit", "--json"}, Dir: "/project"}).
			Return(utils.CommandResult{ExitCode: 1, Stdout: npmAuditReport}, nil)

		summary, err := Audit(context.Background(), "/project", NPM)
		require.NoError(t, err)
		assert.True(t, summary.Exceeds(SeverityHigh))
	})

	t.Run("should fail if the audit printed nothing", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, mock.Anything).Return(utils.CommandResult{ExitCode: 1, Stderr: "ENOLOCK"}, nil)

		_, err := Audit(context.Background(), "/project", NPM)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ENOLOCK")
	})
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("HIGH")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, sev)

	_, err = ParseSeverity("severe")
	assert.Error(t, err)
}
