package services

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"farmwise-backend/internal/models"
)

const defaultChatContext = "farming_advisor"

const advisorInstruction = `You are an expert agricultural advisor with deep knowledge of farming practices, crop management, pest control, soil health, weather planning, and sustainable agriculture.

Provide practical, actionable advice tailored to the user's specific questions. Format your responses clearly with:
- Use **bold** for important points
- Use bullet points for lists
- Keep responses well-organized and easy to read
- Be concise but comprehensive
- Always consider regional variations when relevant

`

func buildChatPrompt(req models.ChatRequest) string {
	var b strings.Builder

	// Layer 1: Role and formatting rules
	b.WriteString(advisorInstruction)

	// Layer 2: History, oldest first
	if len(req.ConversationHistory) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range req.ConversationHistory {
			b.WriteString(roleLabel(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Layer 3: Page context
	if c := strings.TrimSpace(req.Context); c != "" && c != defaultChatContext {
		b.WriteString("Context: ")
		b.WriteString(c)
		b.WriteString("\n")
	}

	// Layer 4: Question
	b.WriteString("Current question: ")
	b.WriteString(req.Message)

	return b.String()
}

func roleLabel(role string) string {
	if role == models.RoleUser {
		return "User"
	}
	return "Assistant"
}

var (
	scanPromptOnce sync.Once
	scanPrompt     string
)

// buildScanPrompt is fixed for the life of the process; the schema block is
// reflected from models.AnalysisResult so the prompt and the decoder agree.
func buildScanPrompt() string {
	scanPromptOnce.Do(func() {
		var b strings.Builder
		b.WriteString("You are an expert plant pathologist. Analyze the attached crop image for diseases, pests, or nutrient deficiencies.\n\n")
		b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
		b.WriteString("JSON schema:\n")
		b.WriteString(analysisSchema())
		b.WriteString("\n\nRules:\n")
		b.WriteString(`- status is "Healthy" when no problem is visible, "Diseased" otherwise, "Unknown" when the image is not a plant` + "\n")
		b.WriteString(`- severity is "None" for a healthy plant` + "\n")
		b.WriteString("- treatment and prevention list 2 to 5 short, actionable steps each\n")
		b.WriteString("- confidence is an integer from 0 to 100\n")
		scanPrompt = b.String()
	})
	return scanPrompt
}

func analysisSchema() string {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(&models.AnalysisResult{})
	schema.Version = ""
	schema.ID = ""

	data, err := json.Marshal(schema)
	if err != nil {
		return `{"status": "Healthy"|"Diseased"|"Unknown", "disease": "string", "severity": "High"|"Medium"|"Low"|"None", "description": "string", "treatment": ["string"], "prevention": ["string"], "confidence": int}`
	}
	return string(data)
}
