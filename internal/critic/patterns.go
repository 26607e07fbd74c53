package critic

import (
	"regexp"
	"strings"
)

// Pattern is one row of a detection table. A sentence matches when Match
// finds a hit and Unless, if set, does not.
type Pattern struct {
	Category string
	Match    *regexp.Regexp
	Unless   *regexp.Regexp
	// Template renders a logical-gap entry; {sentence} is replaced with the quoted sentence.
	Template string
}

// Matches reports whether the sentence triggers the pattern.
func (p Pattern) Matches(sentence string) bool {
	if !p.Match.MatchString(sentence) {
		return false
	}
	return p.Unless == nil || !p.Unless.MatchString(sentence)
}

// Render fills the template with the sentence.
func (p Pattern) Render(sentence string) string {
	return strings.ReplaceAll(p.Template, "{sentence}", sentence)
}

var (
	attributionRe = regexp.MustCompile(`(?i)\baccording to\b|\bstud(y|ies)\b|\bsurvey\b|\breport(s|ed)?\b|\bresearch\b|\bdata from\b|\bsource\b|\bpublished\b|\bcited\b|\(\w[^()]*\d{4}\)|\[\d+\]`)
	citationRe    = regexp.MustCompile(`(?i)\baccording to\b|\(\w[^()]*\d{4}\)|\[\d+\]|\bet al\b|\bdoi:`)
	hedgeRe       = regexp.MustCompile(`(?i)\b(may|might|could|possibly|probably|likely|suggests?|appears? to|seems? to)\b`)
	researchRe    = regexp.MustCompile(`(?i)\b(research|researchers|stud(y|ies)|survey|experiments?|clinical trials?)\b`)
	balanceRe     = regexp.MustCompile(`(?i)\b(however|although|though|on the other hand|critics|counterarguments?|nevertheless|conversely|opponents)\b`)
)

// ClaimPatterns flag assertions made without evidence. Every matching
// sentence becomes one unsupported claim.
var ClaimPatterns = []Pattern{
	{
		Category: "absolute quantifier",
		Match:    regexp.MustCompile(`(?i)\b(always|never|all|every|everyone|everybody|nobody|no one|none)\b`),
	},
	{
		Category: "overstated certainty",
		Match:    regexp.MustCompile(`(?i)\b(definitely|certainly|undoubtedly|undeniabl[ey]|unquestionabl[ey]|without (a )?doubt|it is (proven|obvious|clear) that|everyone knows|there is no question)\b`),
	},
	{
		Category: "unhedged causal claim",
		Match:    regexp.MustCompile(`(?i)\b(causes|caused|proves|proved|proven|guarantees|guaranteed|ensures|ensured)\b`),
		Unless:   hedgeRe,
	},
	{
		Category: "unattributed statistic",
		Match:    regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(%|percent\b)`),
		Unless:   attributionRe,
	},
	{
		Category: "unnamed authority",
		Match:    regexp.MustCompile(`(?i)\b(experts?|scientists|researchers|doctors|analysts|studies|research)\s+(say|says|said|agree|agrees|believe|believes|claim|claims|show|shows|showed|suggest|suggests|prove|proves)\b`),
		Unless:   citationRe,
	},
}

// FallacyPatterns flag reasoning gaps. They are scanned independently of
// ClaimPatterns, so one sentence can be both a claim and a gap.
var FallacyPatterns = []Pattern{
	{
		Category: "slippery slope",
		Match:    regexp.MustCompile(`(?i)\b(inevitabl[ey]|eventually|ultimately|necessarily)\s+(lead|leads|result|results|end|ends)\s+(to|in|up)\b|\bslippery slope\b|\bbefore you know it\b|\bonly a matter of time\b|\bwhere (does|will) it end\b`),
		Template: `Possible slippery slope: "{sentence}" assumes a chain of consequences without showing each step.`,
	},
	{
		Category: "false dichotomy",
		Match:    regexp.MustCompile(`(?i)\beither\b.+\bor\b|\b(only|just) two (options|choices|ways|possibilities|alternatives)\b|\bthere is no (other|middle) (way|option|ground|choice)\b`),
		Unless:   regexp.MustCompile(`(?i)\bor\b.+\bor\b|,[^,]*,\s*or\b|\b(third|another|other) (option|alternative|possibility|way)\b`),
		Template: `Possible false dichotomy: "{sentence}" presents only two options when others may exist.`,
	},
	{
		Category: "appeal to authority",
		Match:    regexp.MustCompile(`(?i)\b(famous|renowned|leading|top|respected|prominent|eminent|distinguished|world-class)\s+(experts?|scientists?|doctors?|economists?|researchers?|professors?|physicians?|authorit(y|ies))\b`),
		Unless:   regexp.MustCompile(`(?i)\(\w[^()]*\d{4}\)|\[\d+\]|\bdr\.?\s+\w+|\bet al\b`),
		Template: `Possible appeal to authority: "{sentence}" relies on status rather than evidence.`,
	},
	{
		Category: "hasty generalization",
		Match:    regexp.MustCompile(`(?i)\b(all|every)\s+\w+\s+(are|is|do|does|have|has|will)\b|\bbased on (one|a single|my own|a few)\b`),
		Template: `Possible hasty generalization: "{sentence}" draws a broad conclusion from limited cases.`,
	},
	{
		Category: "correlation and causation",
		Match:    regexp.MustCompile(`(?i)\bcorrelat\w*\b.*\b(causes?|caused|proves?)\b|\bafter\b.+\b(therefore|thus|hence)\b`),
		Template: `Possible confusion of correlation and causation: "{sentence}" infers cause from sequence or association.`,
	},
	{
		Category: "ad hominem",
		Match:    regexp.MustCompile(`(?i)\bonly an? (idiot|fool)\b|\b(idiots?|fools?|liars?|morons?) (who|would)\b|\bcan(no|')t be trusted\b`),
		Template: `Possible ad hominem: "{sentence}" attacks people rather than their argument.`,
	},
	{
		Category: "bandwagon",
		Match:    regexp.MustCompile(`(?i)\beveryone is doing\b|\bmost people (agree|believe|think)\b|\bmillions of people (can't|cannot) be wrong\b|\bjoin the (millions|majority)\b`),
		Template: `Possible bandwagon appeal: "{sentence}" treats popularity as proof.`,
	},
}

// missingCitationsGap is the document-level gap for research mentioned without any citation.
const missingCitationsGap = "Research or studies are mentioned, but no citations or sources are provided."
