package models

const (
	StatusHealthy  = "Healthy"
	StatusDiseased = "Diseased"
	StatusUnknown  = "Unknown"
	StatusError    = "Error"
)

const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
	SeverityNone   = "None"
)

// AnalysisResult is the structured crop-image diagnosis returned by /api/scan.
// Every field is always populated before it leaves the server.
type AnalysisResult struct {
	Status      string   `json:"status" jsonschema:"enum=Healthy,enum=Diseased,enum=Unknown"`
	Disease     string   `json:"disease" jsonschema_description:"Disease name, or Healthy Plant"`
	Severity    string   `json:"severity" jsonschema:"enum=High,enum=Medium,enum=Low,enum=None"`
	Description string   `json:"description" jsonschema_description:"Short explanation of what is visible in the image"`
	Treatment   []string `json:"treatment" jsonschema:"minItems=1"`
	Prevention  []string `json:"prevention" jsonschema:"minItems=1"`
	Confidence  int      `json:"confidence" jsonschema:"minimum=0,maximum=100"`
}

// ScanResponse wraps a successful analysis.
type ScanResponse struct {
	Analysis AnalysisResult `json:"analysis"`
}

// ScanErrorResponse carries a fully formed fallback analysis on server-side
// failures; it is omitted for caller errors.
type ScanErrorResponse struct {
	Error    string          `json:"error"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
}
