// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/trikefare/pkg/fare"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

// RegisterFarePrompts registers the fare wizard prompts with the MCP server
func RegisterFarePrompts(s *server.MCPServer, cfg wizard.Config) {
	s.AddPrompt(mcp.NewPrompt("fare_wizard",
		mcp.WithPromptDescription("How to walk a user through a tricycle fare estimate"),
	), FareWizardPromptHandler(cfg))
}

// FareWizardPromptHandler returns the guide for the session tools
func FareWizardPromptHandler(cfg wizard.Config) server.PromptHandlerFunc {
	text := FareWizardText(cfg)
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(
			"Tricycle Fare Wizard",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(
					mcp.RoleAssistant,
					mcp.NewTextContent(text),
				),
			},
		), nil
	}
}

// FareWizardText renders the prompt for cfg
func FareWizardText(cfg wizard.Config) string {
	r := cfg.Rules
	money := func(minor int64) string {
		return fare.Money{Amount: minor, Currency: r.Currency}.String()
	}

	return fmt.Sprintf(`You can estimate tricycle fares in %[1]s with a four step wizard.

1. Call start_fare_session and keep the returned session_id.
2. Step 1, passengers: call set_passengers with 1 to %[2]d, then next_step.
3. Step 2, current location: pick the pick-up point with select_map_point,
   search_location (landmark or street name) or locate_device, then next_step.
4. Step 3, destination: pick the drop-off point the same way, then next_step.
5. Step 4 shows the distance and the fare. Use restart_fare_session for another trip.

Addresses are looked up in the background. If the view shows "loading": true,
call get_fare_session with wait set to true before reading addresses.

Only points inside %[1]s are accepted (the view's map.max_bounds).
next_step refuses to leave a location step until a point is picked there.

FARE MATRIX:
- %[3]s for the first %[4]g km
- %[5]s for every started kilometer after that
- %[6]s extra when there are exactly %[7]d passengers

Distances are straight-line, so the actual fare on the road may be higher.
For a quick answer without the wizard, use estimate_fare.`,
		cfg.City, r.MaxPassengers,
		money(r.BaseFare), r.IncludedKm,
		money(r.PerKm),
		money(r.GroupSurcharge), r.GroupSize,
	)
}
