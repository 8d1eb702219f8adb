// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType identifies the assessment track a session is running.
type FlowType string

// Flow type constants.
const (
	FlowTypeSkin FlowType = "skin"
	FlowTypeHair FlowType = "hair"
)

// IsValidFlowType checks if the given flow type is supported.
func IsValidFlowType(ft FlowType) bool {
	switch ft {
	case FlowTypeSkin, FlowTypeHair:
		return true
	default:
		return false
	}
}

// FlowConfig holds the per-flow wire identifier and display copy.
type FlowConfig struct {
	WireType string // flowType value sent to the flow service
	Title    string // drawer header title
	Welcome  string // welcome bubble appended after session start
}

var flowConfigs = map[FlowType]FlowConfig{
	FlowTypeSkin: {
		WireType: "skin_flow",
		Title:    "AI Skin Advisor",
		Welcome:  "👋 Hello! I'm your Dermatics AI Skincare Assistant.",
	},
	FlowTypeHair: {
		WireType: "hair_flow",
		Title:    "AI Hair Advisor",
		Welcome:  "👋 Hi! I'm your Dermatics AI Hair Assistant.",
	},
}

// ConfigFor returns the configuration for a flow type, defaulting to skin
// for unknown values so callers always get usable copy.
func ConfigFor(ft FlowType) FlowConfig {
	if cfg, ok := flowConfigs[ft]; ok {
		return cfg
	}
	return flowConfigs[FlowTypeSkin]
}
