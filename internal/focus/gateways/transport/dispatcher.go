package transport

import (
	"context"
	"fmt"

	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/domain"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
)

// Dispatcher routes requests to the service by action name.
type Dispatcher struct {
	svc    FocusService
	logger log.Logger
}

// NewDispatcher returns a RequestHandler backed by svc.
func NewDispatcher(svc FocusService, logger log.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, logger: logger}
}

func (d *Dispatcher) HandleRequest(ctx context.Context, req wire.Request) wire.Response {
	resp := d.dispatch(ctx, req)
	if !resp.Success {
		d.logger.Warn(map[string]any{
			"action": req.Action,
			"error":  resp.Error,
		}, "Request failed")
	} else {
		d.logger.Debug(map[string]any{"action": req.Action}, "Request handled")
	}
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, req wire.Request) wire.Response {
	switch req.Action {
	case wire.ActionStartTimer:
		return result(nil, d.svc.StartTimer(ctx, req.Hours))

	case wire.ActionStopTimer:
		return result(nil, d.svc.StopTimer(ctx))

	case wire.ActionGetStatus:
		st, err := d.svc.Status(ctx)
		return result(st, err)

	case wire.ActionAddAllowedSite:
		l, err := d.svc.AddAllowedSite(ctx, req.Site)
		return result(wire.SitesPayload{AllowedSites: l}, err)

	case wire.ActionRemoveAllowedSite:
		l, err := d.svc.RemoveAllowedSite(ctx, req.Site)
		return result(wire.SitesPayload{AllowedSites: l}, err)

	case wire.ActionUpdateAllowedSites:
		return result(nil, d.svc.UpdateAllowedSites(ctx, domain.AllowList(req.Sites)))

	case wire.ActionGetBlockMessage:
		msg, err := d.svc.BlockMessage(ctx)
		return result(wire.MessagePayload{Message: msg}, err)

	case wire.ActionSetBlockMessage:
		return result(nil, d.svc.SetBlockMessage(ctx, req.Message))

	case wire.ActionExportSites:
		data, err := d.svc.ExportSites(ctx)
		return result(wire.ExportPayload{Data: string(data)}, err)

	case wire.ActionImportSites:
		l, err := d.svc.ImportSites(ctx, []byte(req.Data))
		return result(wire.SitesPayload{AllowedSites: l}, err)

	case wire.ActionGetRules:
		rules, err := d.svc.Rules(ctx)
		if rules == nil {
			rules = []domain.BlockRule{}
		}
		return result(wire.RulesPayload{Rules: rules}, err)

	case wire.ActionCheckNavigation:
		dec, err := d.svc.CheckNavigation(ctx, domain.NavigationRequest{
			URL:          req.URL,
			Initiator:    req.Initiator,
			ResourceType: req.ResourceType,
		})
		return result(dec, err)

	case wire.ActionBlockedPage:
		page, err := d.svc.BlockedPage(ctx, req.URL)
		return result(page, err)

	default:
		return wire.Fail(fmt.Errorf("%w: %q", domain.ErrUnknownAction, req.Action))
	}
}

func result(payload any, err error) wire.Response {
	if err != nil {
		return wire.Fail(err)
	}
	return wire.OK(payload)
}

var _ RequestHandler = (*Dispatcher)(nil)
