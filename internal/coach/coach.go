package coach

import (
	"fmt"
	"strings"
	"text/template"
)

var weeklyPlanTmpl = template.Must(template.New("weekly").Parse(`
## 📅 Weekly Training Plan

---

### Day 1: Finishing & Acceleration
• 10–20m explosive sprints  
• First-step acceleration drills  
• Position-specific finishing for {{.Position}}  
Intensity: {{.Intensity}}

---

### Day 2: Speed & Agility
• Ladder drills  
• Cone direction changes  
• Reaction-based sprint starts  
Note: {{.InjuryNote}}

---

### Day 3: Tactical Awareness
• Small-sided game scenarios  
• Decision-making under pressure  
• Movement analysis for {{.Position}}  

---

### Day 4: Recovery & Mobility
• Light jog  
• Dynamic stretching  
• Foam rolling  
• Joint mobility routine  

---

### Day 5: Strength & Conditioning
• Bodyweight circuits  
• Core stability training  
• Controlled plyometrics (if injury-free)  

---

### Day 6: Match Simulation
• High-intensity drills  
• Timed performance challenges  
• Tactical transitions  

---

### Day 7: Rest & Mental Training
• Active recovery or full rest  
• Visualization practice  
• Weekly performance reflection  
`))

var recoveryTmpl = template.Must(template.New("recovery").Parse(`
### Recovery Plan: {{.}}

• Hydration optimization  
• 8+ hours sleep target  
• Light mobility exercises  
• Nutrient timing emphasis  
• Gradual return to intensity  
`))

var strategyTmpl = template.Must(template.New("strategy").Parse(`
### Strategy vs {{.}}

• Maintain tactical discipline  
• Quick transitions  
• Exploit positional gaps  
• Structured defensive shape  
• Communication under pressure  
`))

const injuryAdvice = `
Based on your description:

• Reduce high-intensity load  
• Focus on controlled mobility work  
• Prioritize recovery and rest  
• Seek professional medical advice if pain persists  
`

const assistantGuidance = `
AI Guidance:

• Focus on consistency  
• Train with measurable goals  
• Improve weak areas strategically  
• Maintain recovery balance  
`

// InjuryNote is the Day 2 note for an optional current injury
func InjuryNote(injury string) string {
	injury = strings.TrimSpace(injury)
	if injury == "" {
		return "No injury restrictions."
	}
	return fmt.Sprintf("Avoid overload due to %s.", injury)
}

// WeeklyPlan renders the seven day markdown plan
func WeeklyPlan(position Position, level FitnessLevel, injury string) (string, error) {
	var b strings.Builder
	err := weeklyPlanTmpl.Execute(&b, struct {
		Position   string
		Intensity  string
		InjuryNote string
	}{position.String(), level.Intensity(), InjuryNote(injury)})
	if err != nil {
		return "", fmt.Errorf("render weekly plan: %w", err)
	}
	return b.String(), nil
}

// InjuryAdvice returns general load guidance for a described injury
func InjuryAdvice(description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: describe the injury first", ErrEmptyInput)
	}
	return injuryAdvice, nil
}

// RecoveryPlan renders the recovery protocol for focus
func RecoveryPlan(focus RecoveryFocus) (string, error) {
	return render(recoveryTmpl, focus.String())
}

// MatchStrategy renders the strategy against style
func MatchStrategy(style OpponentStyle) (string, error) {
	return render(strategyTmpl, style.String())
}

// AssistantGuidance answers a performance question with fixed guidance
func AssistantGuidance(question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: enter a question first", ErrEmptyInput)
	}
	return assistantGuidance, nil
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return b.String(), nil
}
