package sampling

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\-\s()]{7,}\d`)
)

// Redact rewrites email addresses and phone-number-shaped digit groups in
// prompt before it is handed to sampling_fn (spec.md §4.K "Redaction").
// Emails are matched first so a phone-shaped run of digits inside a local
// part (e.g. "j123@example.com") isn't double-redacted.
func Redact(prompt string) string {
	prompt = emailPattern.ReplaceAllString(prompt, "[REDACTED_EMAIL]")
	prompt = phonePattern.ReplaceAllString(prompt, "[REDACTED_PHONE]")
	return prompt
}
