package privacy

import "regexp"

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Finding is one PHI match inside a text observation.
type Finding struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Detector scans clinical text for PHI patterns and masks them.
type Detector struct {
	rules []compiledRule
}

func NewDetector(cfg RulesConfig) (*Detector, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Detector{rules: compiled}, nil
}

// Detect returns every PHI match in text, in rule order.
func (d *Detector) Detect(text string) []Finding {
	if d == nil {
		return nil
	}

	var findings []Finding
	for _, rule := range d.rules {
		for _, match := range rule.re.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Start: match[0],
				End:   match[1],
				Type:  rule.rule.Type,
				Value: text[match[0]:match[1]],
			})
		}
	}
	return findings
}

// Mask replaces every PHI match with the rule's mask.
func (d *Detector) Mask(text string) string {
	if d == nil {
		return text
	}
	masked := text
	for _, rule := range d.rules {
		masked = rule.re.ReplaceAllString(masked, rule.rule.Mask)
	}
	return masked
}
