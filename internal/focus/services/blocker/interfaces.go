package blocker

import "github.com/haukened/focusd/internal/focus/domain"

// StateRepository is the persistence the service needs.
type StateRepository interface {
	Initialize(defaultMessage string, sites domain.AllowList) (bool, error)
	Timer() (domain.TimerState, error)
	SaveTimer(domain.TimerState) error
	AllowList() (domain.AllowList, error)
	SaveAllowList(domain.AllowList) error
	BlockMessage() (string, error)
	SaveBlockMessage(string) error
}

// RuleInstaller is the dynamic rule table the derived rule is installed into.
type RuleInstaller interface {
	DynamicRules() []domain.BlockRule
	UpdateDynamicRules(removeIDs []int, add []domain.BlockRule) error
	Evaluate(req domain.NavigationRequest) domain.BlockDecision
}

// SiteCodec converts the allow list to and from the export format.
type SiteCodec interface {
	Export(domain.AllowList) ([]byte, error)
	Import([]byte) (domain.AllowList, error)
}
