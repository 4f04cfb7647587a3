package agent

import (
	"fmt"
	"strings"

	"github.com/venturahq/ventura/internal/domain"
)

// Role briefs. The closing confidence instruction is load-bearing: cliproc
// parses the trailing "Confidence:" line out of the transcript.
var roleBriefs = map[domain.Specialist]string{
	domain.SpecialistEconomist: "You are a market economist. Assess demand, market size, pricing power, " +
		"unit economics, and macro exposure. Quantify where possible and state assumptions.",
	domain.SpecialistLawyer: "You are a regulatory and compliance lawyer. Assess licensing, liability, " +
		"data protection, and jurisdiction-specific constraints. Flag blockers explicitly.",
	domain.SpecialistSociologist: "You are a sociologist of technology adoption. Assess feasibility of " +
		"building and operating the product: team, skills, adoption friction, and behavioral risk.",
	domain.SpecialistSynthesizer: "You are a strategy synthesizer. Combine the prior findings into a " +
		"coherent go/no-go recommendation with sequenced next steps.",
}

type PromptInput struct {
	Role         domain.Specialist
	Objective    string
	Idea         domain.Idea
	PriorContext string
	Scenario     domain.ScenarioType
}

func BuildPrompt(input PromptInput) string {
	var b strings.Builder

	if brief, ok := roleBriefs[input.Role]; ok {
		b.WriteString("Role:\n")
		b.WriteString(brief + "\n\n")
	}

	b.WriteString("Objective:\n")
	objective := strings.TrimSpace(input.Objective)
	if objective == "" {
		objective = "Assess the business idea below."
	}
	b.WriteString("- " + objective + "\n")
	if input.Scenario != "" {
		b.WriteString("- Stress scenario: " + scenarioDescription(input.Scenario) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Business Idea:\n")
	b.WriteString("- Description: " + strings.TrimSpace(input.Idea.Description) + "\n")
	b.WriteString("- Industry: " + strings.TrimSpace(input.Idea.Industry) + "\n")
	b.WriteString("- Target market: " + strings.TrimSpace(input.Idea.TargetMarket) + "\n")
	b.WriteString("- Business model: " + strings.TrimSpace(input.Idea.BusinessMod) + "\n")
	if region := strings.TrimSpace(input.Idea.Region); region != "" {
		b.WriteString("- Region: " + region + "\n")
	}
	b.WriteString("\n")

	if prior := strings.TrimSpace(input.PriorContext); prior != "" {
		b.WriteString("Prior Findings:\n")
		b.WriteString(prior)
		b.WriteString("\n\n")
	}

	b.WriteString("Deliverables:\n")
	if input.Scenario != "" {
		b.WriteString("- Severity of this scenario for the idea on a 0-10 scale, with reasoning.\n")
		b.WriteString("- Concrete mitigations, one per line, prefixed with 'Mitigation:'.\n")
	} else {
		b.WriteString("- Findings relevant to your role, most material first.\n")
		b.WriteString("- Explicit risks and unknowns.\n")
	}
	b.WriteString("- Final line exactly of the form 'Confidence: 0.NN' reflecting how certain you are.\n")

	return b.String()
}

func scenarioDescription(s domain.ScenarioType) string {
	switch s {
	case domain.ScenarioEconomicDownturn:
		return "a sustained economic downturn cuts discretionary spending by 30%"
	case domain.ScenarioCompetitiveDisruption:
		return "a well-funded competitor launches a cheaper substitute within 12 months"
	case domain.ScenarioRegulatoryChanges:
		return "new regulation imposes licensing and compliance costs on the category"
	case domain.ScenarioTechObsolescence:
		return "a platform shift makes the current technical approach obsolete"
	case domain.ScenarioSupplyChainCrisis:
		return "key suppliers fail or input costs double for an extended period"
	case domain.ScenarioMarketSaturation:
		return "the addressable market saturates faster than projected"
	case domain.ScenarioFundingDrought:
		return "follow-on funding becomes unavailable for 18 months"
	case domain.ScenarioTalentShortage:
		return "critical hires cannot be made at planned compensation levels"
	}
	return string(s)
}

// ParseConfidence extracts the trailing confidence declaration from analysis
// text. Missing or malformed declarations fall back to a conservative value
// rather than failing the phase.
func ParseConfidence(text string, fallback float64) float64 {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0 && i >= len(lines)-5; i-- {
		line := strings.TrimSpace(lines[i])
		rest, ok := cutPrefixFold(line, "confidence:")
		if !ok {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(rest), "%f", &v); err != nil {
			continue
		}
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return v
	}
	return fallback
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return "", false
	}
	if !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
