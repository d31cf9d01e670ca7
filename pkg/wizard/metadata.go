package wizard

import "github.com/noona-project/warden/pkg/types"

// Metadata is the response shape of GET /api/setup/wizard/metadata.
type Metadata struct {
	Steps    []types.WizardStepMeta `json:"steps"`
	Features map[string]bool        `json:"features"`
}

// DescribeSteps returns the fixed, static description of the four wizard
// steps for the setup UI to render.
func DescribeSteps() Metadata {
	return Metadata{
		Steps: []types.WizardStepMeta{
			{
				ID:          string(types.StepFoundation),
				Title:       "Foundation",
				Description: "Install the core cache, database, object store, API, UI, and orchestrator services.",
				Optional:    false,
				Icon:        "foundation",
			},
			{
				ID:          string(types.StepPortal),
				Title:       "Portal",
				Description: "Connect the integration portal to the foundation services.",
				Optional:    true,
				Icon:        "portal",
			},
			{
				ID:          string(types.StepRaven),
				Title:       "Raven",
				Description: "Install the downloader add-on and auto-detect its external data mount.",
				Optional:    true,
				Icon:        "raven",
				Capabilities: []string{"mount-auto-detect"},
			},
			{
				ID:          string(types.StepVerification),
				Title:       "Verification",
				Description: "Confirm every selected service came up healthy.",
				Optional:    false,
				Icon:        "verification",
			},
		},
		Features: map[string]bool{
			"mountAutoDetect": true,
		},
	}
}
