package messages

import (
	"fmt"

	"github.com/MOYARU/a2ascan/internal/report"
)

type MessageDetail struct {
	Title   string
	Message string
	Fix     string
}

var findingMessages = map[string]MessageDetail{
	"MALFORMED_MANIFEST": {
		Title:   "Malformed Manifest",
		Message: "The agent card could not be decoded as a JSON object: %s",
		Fix:     "Serve a single well-formed JSON object with Content-Type application/json.",
	},
	"MALFORMED_FIELD": {
		Title:   "Malformed Manifest Field",
		Message: "Field '%s' has type %s; expected %s. The value was ignored.",
		Fix:     "Correct the field type so consumers can interpret the agent card consistently.",
	},
	"MALFORMED_SKILL": {
		Title:   "Malformed Skill Entry",
		Message: "Skill entry %d is %s rather than an object and cannot be analyzed.",
		Fix:     "Declare every skill as a JSON object with id, name, description and parameters.",
	},
	"MANIFEST_ID_MISSING": {
		Title:   "Missing Agent Identifier",
		Message: "The agent card does not declare an 'id'.",
		Fix:     "Publish a stable, unique agent identifier so orchestrators can pin and audit this agent.",
	},
	"MANIFEST_NAME_MISSING": {
		Title:   "Missing Agent Name",
		Message: "The agent card does not declare a 'name'.",
		Fix:     "Declare a human-readable agent name.",
	},
	"MANIFEST_SKILLS_MISSING": {
		Title:   "No Skills Declared",
		Message: "The agent card declares no skills.",
		Fix:     "List the capabilities this agent exposes under 'skills'.",
	},
	"MANIFEST_SKILL_ID_MISSING": {
		Title:   "Skill Missing Identifier",
		Message: "Skill '%s' at index %d has no 'id'.",
		Fix:     "Give every skill a stable 'id' so callers can bind to an exact capability.",
	},
	"MANIFEST_AUTH_MISSING": {
		Title:   "Missing Authentication Block",
		Message: "The agent card has no 'authentication' block.",
		Fix:     "Declare the authentication scheme callers must use (for example bearer or oauth2).",
	},
	"UNEXPECTED_CONTENT_TYPE": {
		Title:   "Unexpected Content-Type",
		Message: "The agent card was served as '%s' instead of application/json.",
		Fix:     "Serve the agent card with Content-Type: application/json.",
	},
	"MISSING_SECURITY_HEADERS": {
		Title:   "Missing Security Headers",
		Message: "The agent card response is missing: %s",
		Fix:     "Send X-Content-Type-Options: nosniff on discovery responses.",
	},
	"PROMPT_INJECTION": {
		Title:   "Prompt Injection",
		Message: "%s contains directive language aimed at an LLM reader: %s",
		Fix:     "Describe the agent factually. Remove instructions addressed to the model that selects or routes agents.",
	},
	"INSECURE_TRANSPORT": {
		Title:   "Insecure Transport",
		Message: "The service URL '%s' uses plaintext %s; %s is available.",
		Fix:     "Serve the agent endpoint over TLS and publish the encrypted URL in the agent card.",
	},
	"NO_AUTHENTICATION": {
		Title:   "No Authentication",
		Message: "%s",
		Fix:     "Require an authentication scheme (bearer token, OAuth2, mTLS) for every skill invocation.",
	},
	"COMMAND_EXECUTION": {
		Title:   "Dangerous Capability: Command Execution",
		Message: "Skill '%s' appears to execute arbitrary shell or process commands (%s).",
		Fix:     "Remove generic command execution. Expose narrowly scoped operations with validated arguments instead.",
	},
	"UNRESTRICTED_FILE_ACCESS": {
		Title:   "Dangerous Capability: Unrestricted File Access",
		Message: "Skill '%s' exposes filesystem access without path scoping (%s).",
		Fix:     "Restrict file operations to an allow-listed base directory and reject absolute or traversing paths.",
	},
	"SSRF_PRONE_FETCH": {
		Title:   "SSRF-Prone Fetch",
		Message: "Skill '%s' fetches caller-supplied URLs via '%s' and references internal addresses (%s).",
		Fix:     "Resolve and validate destinations, deny loopback, private, link-local and metadata ranges, and allow-list outbound hosts.",
	},
	"DATA_EXFILTRATION": {
		Title:   "Data Exfiltration Target",
		Message: "Skill '%s' sends data to external sink '%s' (%s).",
		Fix:     "Remove undeclared sinks or restrict them to an allow-listed domain under the agent operator's control.",
	},
	"AGENT_IMPERSONATION": {
		Title:   "Agent Impersonation",
		Message: "Agent name '%s' claims an identity it cannot prove: %s",
		Fix:     "Drop vendor, model and endorsement wording from the name unless the card is served from that vendor's domain.",
	},
	"SKILL_MISSING_ID": {
		Title:   "Skill Missing Identifier",
		Message: "Skill '%s' at index %d has no 'id'.",
		Fix:     "Give every skill a stable 'id' so callers can bind to an exact capability.",
	},
	"SUSPICIOUS_CONTACT_DOMAIN": {
		Title:   "Suspicious Contact Domain",
		Message: "Contact email '%s' uses a suspicious domain (%s).",
		Fix:     "Publish a contact address on the operator's own verified domain.",
	},
	"UNAUTHENTICATED_DANGEROUS_CAPABILITY": {
		Title:   "Chained Risk: Unauthenticated Dangerous Capability",
		Message: "Unauthenticated callers can reach dangerous skill(s): %s",
		Fix:     "Require authentication before any skill that executes commands or touches the filesystem.",
	},
	"RULE_INTERNAL_ERROR": {
		Title:   "Rule Internal Error",
		Message: "Rule '%s' failed and produced no verdict: %v",
		Fix:     "Report the failing rule; other rules still ran against this manifest.",
	},
}

// uiMessages holds console strings.
var uiMessages = map[string]string{
	"JSONReportSaved":         "JSON Report saved: %s",
	"HTMLReportSaved":         "HTML Report saved: %s",
	"JSONReportFailed":        "Failed to save JSON report: %v",
	"HTMLReportFailed":        "Failed to save HTML report: %v",
	"HTMLReportTitle":         "Agent Card Scan Report",
	"ConsoleNoIssues":         "[OK] No issues found",
	"ConsoleFixLabel":         "Fix",
	"ConsoleLocationLabel":    "Location",
	"ConsoleScanSummaryTitle": "--- Scan Summary ---",
	"ConsoleBreakdownTitle":   "Threat Severity Breakdown:",
	"ScanCancelled":           "Scan cancelled.",
	"Target":                  "Target: %s",
	"TargetCount":             "Targets: %d (concurrency %d, timeout %s)",
	"FetchFailed":             "Fetch failed: %v",
	"AllScansCompleted":       "All scans completed.",
	"ScanIncomplete":          "Scan interrupted: %d completed, %d skipped.",
}

func GetMessage(id string) MessageDetail {
	if msg, ok := findingMessages[id]; ok {
		if msg.Title == "" {
			msg.Title = id
		}
		return msg
	}
	return MessageDetail{
		Title:   id,
		Message: fmt.Sprintf("Message details for ID '%s' not found.", id),
		Fix:     "",
	}
}

// NewFinding fills threat name, summary and fix from the catalog entry for id.
func NewFinding(id string, sev report.Severity, location string, args ...any) report.Finding {
	msg := GetMessage(id)
	summary := msg.Message
	if len(args) > 0 {
		summary = fmt.Sprintf(msg.Message, args...)
	}
	return report.Finding{
		Severity:   sev,
		ThreatName: msg.Title,
		Summary:    summary,
		RuleID:     id,
		Location:   location,
		Fix:        msg.Fix,
	}
}

func GetUIMessage(id string, args ...interface{}) string {
	format, ok := uiMessages[id]
	if !ok || format == "" {
		return id
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
