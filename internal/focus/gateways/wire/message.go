package wire

import (
	"encoding/json"
	"fmt"

	"github.com/haukened/focusd/internal/focus/domain"
)

// Request actions understood by the dispatcher.
const (
	ActionStartTimer         = "startTimer"
	ActionStopTimer          = "stopTimer"
	ActionGetStatus          = "getStatus"
	ActionAddAllowedSite     = "addAllowedSite"
	ActionRemoveAllowedSite  = "removeAllowedSite"
	ActionUpdateAllowedSites = "updateAllowedSites"
	ActionGetBlockMessage    = "getBlockMessage"
	ActionSetBlockMessage    = "setBlockMessage"
	ActionExportSites        = "exportSites"
	ActionImportSites        = "importSites"
	ActionGetRules           = "getRules"
	ActionCheckNavigation    = "checkNavigation"
	ActionBlockedPage        = "blockedPage"
)

// Request is one message from the extension. Only the fields used by the
// action are set.
type Request struct {
	Action       string              `json:"action"`
	Hours        float64             `json:"hours,omitempty"`
	Site         string              `json:"site,omitempty"`
	Sites        []string            `json:"sites,omitempty"`
	Message      string              `json:"message,omitempty"`
	Data         string              `json:"data,omitempty"`
	URL          string              `json:"url,omitempty"`
	Initiator    string              `json:"initiator,omitempty"`
	ResourceType domain.ResourceType `json:"resourceType,omitempty"`
}

// Response is the reply to a Request. Payload must encode to a JSON object;
// its fields are merged next to "success" and "error".
type Response struct {
	Success bool
	Error   string
	Payload any
}

// OK returns a successful response carrying payload.
func OK(payload any) Response { return Response{Success: true, Payload: payload} }

// Fail returns an error response.
func Fail(err error) Response { return Response{Success: false, Error: err.Error()} }

// MarshalJSON flattens Payload into the top-level object.
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	if r.Payload != nil {
		b, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("response payload must be a JSON object: %w", err)
		}
	}
	success, _ := json.Marshal(r.Success)
	out["success"] = success
	if r.Error != "" {
		msg, _ := json.Marshal(r.Error)
		out["error"] = msg
	}
	return json.Marshal(out)
}

// SitesPayload carries the allow list after a mutation.
type SitesPayload struct {
	AllowedSites domain.AllowList `json:"allowedSites"`
}

// MessagePayload carries the block message.
type MessagePayload struct {
	Message string `json:"message"`
}

// ExportPayload carries an export document as text.
type ExportPayload struct {
	Data string `json:"data"`
}

// RulesPayload carries the installed rules.
type RulesPayload struct {
	Rules []domain.BlockRule `json:"rules"`
}
