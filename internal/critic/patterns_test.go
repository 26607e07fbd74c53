package critic

import "testing"

func findPattern(t *testing.T, table []Pattern, category string) Pattern {
	t.Helper()
	for _, p := range table {
		if p.Category == category {
			return p
		}
	}
	t.Fatalf("no pattern %q", category)
	return Pattern{}
}

func TestClaimPatterns(t *testing.T) {
	tests := []struct {
		category string
		sentence string
		want     bool
	}{
		{"absolute quantifier", "Everyone agrees the policy is working.", true},
		{"absolute quantifier", "NOBODY saw it coming.", true},
		{"absolute quantifier", "Some readers agreed with the policy.", false},
		{"overstated certainty", "It is obvious that prices will fall.", true},
		{"overstated certainty", "The team will definitely win.", true},
		{"overstated certainty", "Prices may fall next year.", false},
		{"unhedged causal claim", "Sugar causes hyperactivity in children.", true},
		{"unhedged causal claim", "Sugar may cause hyperactivity in children.", false},
		{"unhedged causal claim", "The data suggests sugar causes hyperactivity.", false},
		{"unattributed statistic", "Over 70% of users prefer dark mode.", true},
		{"unattributed statistic", "Unemployment rose 4.5 percent in March.", true},
		{"unattributed statistic", "According to the survey, 70% of users prefer dark mode.", false},
		{"unattributed statistic", "Over 70% of users prefer dark mode [3].", false},
		{"unnamed authority", "Experts say the bridge is unsafe.", true},
		{"unnamed authority", "Studies show coffee improves focus.", true},
		{"unnamed authority", "Studies show coffee improves focus (Lee 2020).", false},
		{"unnamed authority", "The expert panel met on Monday.", false},
	}
	for _, tt := range tests {
		p := findPattern(t, ClaimPatterns, tt.category)
		if got := p.Matches(tt.sentence); got != tt.want {
			t.Errorf("%s on %q: got %v, want %v", tt.category, tt.sentence, got, tt.want)
		}
	}
}

func TestFallacyPatterns(t *testing.T) {
	tests := []struct {
		category string
		sentence string
		want     bool
	}{
		{"slippery slope", "Legalizing this will inevitably lead to chaos.", true},
		{"slippery slope", "It is only a matter of time before the system fails.", true},
		{"slippery slope", "The road leads to the old town.", false},
		{"false dichotomy", "Either we cut taxes or the economy collapses.", true},
		{"false dichotomy", "There are only two options left for the board.", true},
		{"false dichotomy", "Either we cut taxes, raise them, or freeze spending.", false},
		{"false dichotomy", "Either we cut taxes or find another option.", false},
		{"appeal to authority", "Renowned scientists agree that the diet works.", true},
		{"appeal to authority", "Leading economists back the plan.", true},
		{"appeal to authority", "Leading economists (Shiller 2019) back the plan.", false},
		{"appeal to authority", "Experts say the plan works.", false},
		{"hasty generalization", "All politicians are liars.", true},
		{"hasty generalization", "The claim is based on a single interview.", true},
		{"hasty generalization", "Most politicians were re-elected.", false},
		{"correlation and causation", "Ice cream sales correlate with drowning, so ice cream causes drowning.", true},
		{"correlation and causation", "After the new mayor arrived, crime fell; therefore she cut crime.", true},
		{"ad hominem", "Only an idiot would believe that argument.", true},
		{"ad hominem", "The senator cannot be trusted on this issue.", true},
		{"bandwagon", "Most people believe the vaccine is safe.", true},
		{"bandwagon", "Millions of people can't be wrong about this.", true},
	}
	for _, tt := range tests {
		p := findPattern(t, FallacyPatterns, tt.category)
		if got := p.Matches(tt.sentence); got != tt.want {
			t.Errorf("%s on %q: got %v, want %v", tt.category, tt.sentence, got, tt.want)
		}
	}
}

func TestPatternRender(t *testing.T) {
	p := findPattern(t, FallacyPatterns, "slippery slope")
	got := p.Render("This leads to that.")
	want := `Possible slippery slope: "This leads to that." assumes a chain of consequences without showing each step.`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFallacyTemplatesNameTheirCategory(t *testing.T) {
	for _, p := range FallacyPatterns {
		if p.Template == "" {
			t.Errorf("%s has no template", p.Category)
		}
	}
}
