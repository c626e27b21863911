package dsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int64) *int64 { return &v }
func intpInt(v int) *int  { return &v }

func TestValidatorRejectsEmptyScript(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("a.js", "   ", CompilationContext{}, nil)
	assert.False(t, report.IsValid())
}

func TestValidatorDetectsUnbalancedBraces(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("a.js", "function f() { return 1;", CompilationContext{}, nil)
	require.False(t, report.IsValid())

	var codes []string
	for _, i := range report.Issues {
		codes = append(codes, i.Code)
	}
	assert.Contains(t, codes, "SYN002")
}

func TestValidatorFlagsDisallowedNetworkAccess(t *testing.T) {
	v := NewValidator(nil)
	ctx := CompilationContext{SecurityPolicy: Preset(PresetRestricted)}
	report := v.Validate("a.js", `fetch("https://example.com")`, ctx, nil)
	require.False(t, report.IsValid())
	assert.True(t, containsIssueCode(report, "SEC001"))
}

func TestValidatorFlagsResourceLimitsBelowFloor(t *testing.T) {
	v := NewValidator(nil)
	limits := &ResourceLimits{MaxMemoryMB: intp(16), MaxThreads: intpInt(0)}
	report := v.Validate("a.js", "function main(){}", CompilationContext{}, limits)
	require.False(t, report.IsValid())
	assert.True(t, containsIssueCode(report, "RES001"))
	assert.True(t, containsIssueCode(report, "RES003"))
}

func TestValidatorFlagsBlockedImportPrefix(t *testing.T) {
	v := NewValidator(nil)
	ctx := CompilationContext{
		Imports:         []string{"net/http", "net/http"},
		BlockedPackages: []string{"net/"},
	}
	report := v.Validate("a.js", "function main(){}", ctx, nil)
	require.False(t, report.IsValid())
	assert.True(t, containsIssueCode(report, "IMP001"))
	assert.True(t, containsIssueCode(report, "IMP002"))
}

func TestValidatorRequiresPipelineBlockForPipelineExtension(t *testing.T) {
	v := NewValidator(nil)
	report := v.Validate("deploy.pipeline", "function main(){}", CompilationContext{}, nil)
	assert.True(t, containsIssueCode(report, "DSL001"))
}

func TestValidatorWarnsOnLargeScriptAndInfiniteLoop(t *testing.T) {
	v := NewValidator(nil)
	source := "function main(){ while(true) {} }\n" + strings.Repeat("// padding\n", 5000)
	report := v.Validate("a.js", source, CompilationContext{}, nil)
	assert.True(t, report.IsValid())
	assert.True(t, containsIssueCode(report, "PERF001"))
	assert.True(t, containsIssueCode(report, "PERF002"))
}

func containsIssueCode(r Report, code string) bool {
	for _, i := range r.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
