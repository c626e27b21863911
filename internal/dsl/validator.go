package dsl

import (
	"fmt"
	"strings"
	"time"
)

// Validator runs a six-layer diagnostic pass over a script before it is
// compiled. Dangerous-pattern detection here is string-based and
// best-effort; the Sandbox Manager remains the authoritative enforcement
// boundary.
type Validator struct {
	knownExtensionRequirements map[string][]string
}

// NewValidator builds a Validator. knownExtensionRequirements maps a file
// extension (without a leading dot) to substrings that must appear
// somewhere in the source for that extension's layer-5 check to pass. A nil
// map installs the default, which requires `.pipeline` scripts to contain
// the substring "pipeline"; an empty non-nil map imposes no per-extension
// requirement.
func NewValidator(knownExtensionRequirements map[string][]string) *Validator {
	if knownExtensionRequirements == nil {
		knownExtensionRequirements = map[string][]string{
			"pipeline": {"pipeline"},
		}
	}
	return &Validator{knownExtensionRequirements: knownExtensionRequirements}
}

var blockingSleepPatterns = []string{"Thread.sleep", "time.Sleep", "sleep("}

const (
	minMemoryMB     = 64
	maxCPUTimeMs    = 5 * 60 * 1000
	largeScriptSize = 50_000
)

// Validate runs all six layers against source and returns the accumulated
// Report. ctx supplies the security policy used by layer 2 and the imports
// and blocked packages used by layer 4; limits supplies the resource limits
// checked by layer 3, which is skipped when limits is nil. A zero-value ctx
// carries a policy that denies network, file system, reflection and native
// code, so layer 2 still flags scripts that appear to use any of them.
func (v *Validator) Validate(scriptName, source string, ctx CompilationContext, limits *ResourceLimits) Report {
	start := time.Now()
	var issues []Issue

	issues = append(issues, v.checkSyntax(source)...)
	issues = append(issues, v.checkSecurityPolicy(source, ctx.SecurityPolicy)...)
	issues = append(issues, v.checkResourceLimits(limits)...)
	issues = append(issues, v.checkImports(ctx)...)
	issues = append(issues, v.checkDslRules(scriptName, source)...)
	issues = append(issues, v.checkPerformanceHints(source)...)

	report := Report{
		ScriptName:       scriptName,
		Issues:           issues,
		ValidationTimeMs: time.Since(start).Milliseconds(),
		Recommendations:  recommendationsFor(issues),
	}
	for _, i := range issues {
		if i.Severity == SeverityWarning {
			report.Warnings = append(report.Warnings, i.Message)
		}
	}
	return report
}

// layer 1: syntax skeletal checks.
func (v *Validator) checkSyntax(source string) []Issue {
	var issues []Issue
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return []Issue{{Code: "SYN001", Message: "script is empty", Severity: SeverityError}}
	}

	if !hasBalancedPairs(source, '{', '}') {
		issues = append(issues, Issue{Code: "SYN002", Message: "unbalanced braces", Severity: SeverityError})
	}
	if !hasBalancedPairs(source, '(', ')') {
		issues = append(issues, Issue{Code: "SYN003", Message: "unbalanced parentheses", Severity: SeverityError})
	}
	if !isValidUTF8ish(source) {
		issues = append(issues, Issue{Code: "SYN004", Message: "script contains invalid encoding", Severity: SeverityError})
	}
	return issues
}

// layer 2: sandbox-policy compliance, best-effort pattern matching.
func (v *Validator) checkSecurityPolicy(source string, policy SecurityPolicy) []Issue {
	var issues []Issue
	if !policy.AllowNetworkAccess && containsAny(source, "fetch(", "http.Get", "net.Dial", "XMLHttpRequest") {
		issues = append(issues, Issue{
			Code:       "SEC001",
			Message:    "script appears to perform network access but allowNetworkAccess is false",
			Severity:   SeverityError,
			Suggestion: "remove network calls or enable allowNetworkAccess for this engine context",
		})
	}
	if !policy.AllowFileSystemAccess && containsAny(source, "readFile", "writeFile", "os.Open", "fs.") {
		issues = append(issues, Issue{
			Code:     "SEC002",
			Message:  "script appears to perform file system access but allowFileSystemAccess is false",
			Severity: SeverityError,
		})
	}
	if !policy.AllowReflection && containsAny(source, "reflect.", "Class.forName", "__proto__") {
		issues = append(issues, Issue{Code: "SEC003", Message: "script appears to use reflection but allowReflection is false", Severity: SeverityError})
	}
	if !policy.AllowNativeCode && containsAny(source, "exec.Command", "child_process", "Runtime.exec") {
		issues = append(issues, Issue{Code: "SEC004", Message: "script appears to spawn native processes but allowNativeCode is false", Severity: SeverityError})
	}
	return issues
}

// layer 3: resource-limit sanity.
func (v *Validator) checkResourceLimits(limits *ResourceLimits) []Issue {
	if limits == nil {
		return nil
	}
	var issues []Issue
	if limits.MaxMemoryMB != nil && *limits.MaxMemoryMB < minMemoryMB {
		issues = append(issues, Issue{
			Code:       "RES001",
			Message:    fmt.Sprintf("maxMemoryMb %d is below the %d MB floor", *limits.MaxMemoryMB, minMemoryMB),
			Severity:   SeverityError,
			Suggestion: fmt.Sprintf("raise maxMemoryMb to at least %d", minMemoryMB),
		})
	}
	if limits.MaxCPUTimeMs != nil && *limits.MaxCPUTimeMs > maxCPUTimeMs {
		issues = append(issues, Issue{
			Code:     "RES002",
			Message:  "maxCpuTimeMs exceeds the 5 minute ceiling",
			Severity: SeverityError,
		})
	}
	if limits.MaxThreads != nil && *limits.MaxThreads < 1 {
		issues = append(issues, Issue{Code: "RES003", Message: "maxThreads must be at least 1", Severity: SeverityError})
	}
	return issues
}

// layer 4: dependency/import policy.
func (v *Validator) checkImports(ctx CompilationContext) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(ctx.Imports))
	for _, imp := range ctx.Imports {
		if seen[imp] {
			issues = append(issues, Issue{Code: "IMP001", Message: fmt.Sprintf("duplicate import %q", imp), Severity: SeverityWarning})
		}
		seen[imp] = true

		for _, blocked := range ctx.BlockedPackages {
			if strings.HasPrefix(imp, blocked) {
				issues = append(issues, Issue{
					Code:     "IMP002",
					Message:  fmt.Sprintf("import %q matches blocked package prefix %q", imp, blocked),
					Severity: SeverityError,
				})
			}
		}
	}
	return issues
}

// layer 5: DSL-specific rules — required blocks and anti-patterns.
func (v *Validator) checkDslRules(scriptName, source string) []Issue {
	var issues []Issue

	if idx := strings.LastIndex(scriptName, "."); idx >= 0 {
		ext := scriptName[idx+1:]
		for _, required := range v.knownExtensionRequirements[ext] {
			if !strings.Contains(source, required) {
				issues = append(issues, Issue{
					Code:     "DSL001",
					Message:  fmt.Sprintf("script is missing required construct %q for .%s scripts", required, ext),
					Severity: SeverityError,
				})
			}
		}
	}

	for _, pattern := range blockingSleepPatterns {
		if strings.Contains(source, pattern) {
			issues = append(issues, Issue{
				Code:       "DSL002",
				Message:    fmt.Sprintf("blocking sleep pattern %q detected", pattern),
				Severity:   SeverityWarning,
				Suggestion: "prefer cooperative delays over blocking sleeps inside sandboxed scripts",
			})
		}
	}
	return issues
}

// layer 6: performance hints.
func (v *Validator) checkPerformanceHints(source string) []Issue {
	var issues []Issue
	if len(source) > largeScriptSize {
		issues = append(issues, Issue{
			Code:     "PERF001",
			Message:  fmt.Sprintf("script is %d characters, exceeding the %d character guideline", len(source), largeScriptSize),
			Severity: SeverityWarning,
		})
	}
	if strings.Contains(source, "while(true)") || strings.Contains(source, "while (true)") || strings.Contains(source, "for(;;)") {
		issues = append(issues, Issue{
			Code:       "PERF002",
			Message:    "script contains a suspect unconditional infinite loop",
			Severity:   SeverityWarning,
			Suggestion: "ensure the loop body contains a reachable break or yields cooperatively",
		})
	}
	return issues
}

func recommendationsFor(issues []Issue) []string {
	var out []string
	seen := make(map[string]bool)
	for _, i := range issues {
		if i.Suggestion == "" || seen[i.Suggestion] {
			continue
		}
		seen[i.Suggestion] = true
		out = append(out, i.Suggestion)
	}
	return out
}

func hasBalancedPairs(source string, open, close rune) bool {
	depth := 0
	for _, r := range source {
		switch r {
		case open:
			depth++
		case close:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func isValidUTF8ish(source string) bool {
	for _, r := range source {
		if r == '�' {
			return false
		}
	}
	return true
}

func containsAny(source string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(source, n) {
			return true
		}
	}
	return false
}
