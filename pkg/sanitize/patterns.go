package sanitize

import (
	"regexp"

	"github.com/armorclaw/errexplain/pkg/config"
)

// Mask categories. Every group masks with its own entry in Config.Masks,
// falling back to MaskDefault; email addresses fall back to a distinct
// built-in mask instead.
const (
	MaskDefault = "default"
	MaskEmail   = "email"
)

const (
	defaultMask      = "[REDACTED]"
	defaultEmailMask = "[REDACTED_EMAIL]"
)

// Pattern is one built-in redaction rule
type Pattern struct {
	Name        string
	Group       string
	Pattern     *regexp.Regexp
	Mask        string // mask category
	Keep        string // template prefix kept before the mask, e.g. "${1} "
	Description string
}

// builtinPatterns in application order. Payment runs before PII so the phone
// rule never sees card-like digit runs.
var builtinPatterns = []*Pattern{
	{
		Name:        "authorization",
		Group:       config.RuleSecrets,
		Pattern:     regexp.MustCompile(`(?i)(Authorization\s*:\s*(?:Bearer|Basic))\s+[A-Za-z0-9\-._~+/]+=*`),
		Mask:        config.RuleSecrets,
		Keep:        "${1} ",
		Description: "Authorization header credentials, scheme kept",
	},
	{
		Name:        "jwt",
		Group:       config.RuleSecrets,
		Pattern:     regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`),
		Mask:        config.RuleSecrets,
		Description: "JWTs: a base64url JSON header (eyJ...) and two more segments",
	},
	{
		Name:        "card",
		Group:       config.RulePayment,
		Pattern:     regexp.MustCompile(`\b\d{4}[ -]\d{4}[ -]\d{4}[ -]\d{1,7}\b|\b\d{13,19}\b`),
		Mask:        config.RulePayment,
		Description: "Payment card numbers, grouped or bare",
	},
	{
		Name:        "email",
		Group:       config.RulePII,
		Pattern:     regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		Mask:        MaskEmail,
		Description: "Email addresses",
	},
	{
		Name:        "phone",
		Group:       config.RulePII,
		Pattern:     regexp.MustCompile(`\+\d{1,3}(?:[\s.-]?\(?\d{2,4}\)?){2,5}`),
		Mask:        config.RulePII,
		Description: "Phone numbers with a + country code",
	},
	{
		Name:        "national_id",
		Group:       config.RulePII,
		Pattern:     regexp.MustCompile(`(?i)\b[A-Z]{6}[0-9]{2}[A-Z][0-9]{2}[A-Z][0-9]{3}[A-Z]\b`),
		Mask:        config.RulePII,
		Description: "16-character national identifiers",
	},
	{
		Name:        "iban",
		Group:       config.RulePII,
		Pattern:     regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
		Mask:        config.RulePII,
		Description: "IBAN-shaped account numbers",
	},
	{
		Name:        "private_ip",
		Group:       config.RuleNetwork,
		Pattern:     regexp.MustCompile(`\b(?:10(?:\.\d{1,3}){3}|192\.168(?:\.\d{1,3}){2}|172\.(?:1[6-9]|2\d|3[01])(?:\.\d{1,3}){2})\b`),
		Mask:        config.RuleNetwork,
		Description: "RFC1918 IPv4 literals",
	},
	{
		Name:        "cookie",
		Group:       config.RuleNetwork,
		Pattern:     regexp.MustCompile(`(?i)(Cookie\s*:)[^\r\n]*`),
		Mask:        config.RuleNetwork,
		Keep:        "${1} ",
		Description: "Cookie header values, header name kept",
	},
}

// groupOrder is the fixed order rule groups run in
var groupOrder = []string{config.RuleSecrets, config.RulePayment, config.RulePII, config.RuleNetwork}

// Patterns returns the built-in rules in application order
func Patterns() []*Pattern {
	out := make([]*Pattern, 0, len(builtinPatterns))
	for _, g := range groupOrder {
		for _, p := range builtinPatterns {
			if p.Group == g {
				out = append(out, p)
			}
		}
	}
	return out
}
