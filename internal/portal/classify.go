package portal

import (
	"net/http"
	"strings"

	"github.com/muurk/autoconnect/internal/acconfig"
)

// Action is what a portal request asks the controller to do or show.
type Action int

const (
	ActionNotFound Action = iota
	ActionMethodNotAllowed
	ActionRoot
	ActionConfigNew
	ActionOpenSSIDs
	ActionConnect
	ActionDisconnect
	ActionReset
	ActionResult
	ActionSuccess
	ActionFail
	ActionEvents
	ActionScan
	ActionDevInfo
	ActionHome
)

var actionNames = [...]string{
	"not_found", "method_not_allowed", "root", "config_new", "open_ssids",
	"connect", "disconnect", "reset", "result", "success", "fail",
	"events", "scan", "dev_info", "home",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

type route struct {
	action Action
	method string            // empty allows GET and HEAD
	menu   acconfig.MenuItem // zero means always available
}

var routes = map[string]route{
	"":         {action: ActionRoot},
	"/":        {action: ActionRoot},
	"/config":  {action: ActionConfigNew, menu: acconfig.MenuConfigNew},
	"/open":    {action: ActionOpenSSIDs, menu: acconfig.MenuOpenSSIDs},
	"/connect": {action: ActionConnect, method: http.MethodPost},
	"/disc":    {action: ActionDisconnect, menu: acconfig.MenuDisconnect},
	"/reset":   {action: ActionReset, method: http.MethodPost, menu: acconfig.MenuReset},
	"/result":  {action: ActionResult},
	"/success": {action: ActionSuccess},
	"/fail":    {action: ActionFail},
	"/events":  {action: ActionEvents},
	"/scan":    {action: ActionScan, method: http.MethodPost, menu: acconfig.MenuConfigNew},
	"/info":    {action: ActionDevInfo, menu: acconfig.MenuDevInfo},
}

// Classify maps a request to an Action. Paths under /_ac follow the
// portal URI contract; the home URI maps to ActionHome. Actions whose
// menu item is disabled classify as ActionNotFound.
func Classify(method, path string, menu acconfig.MenuItem, homeURI string) Action {
	if homeURI != "" && path == homeURI {
		if !menu.Has(acconfig.MenuHome) {
			return ActionNotFound
		}
		if method != http.MethodGet && method != http.MethodHead {
			return ActionMethodNotAllowed
		}
		return ActionHome
	}

	rest, ok := strings.CutPrefix(path, acconfig.PortalPrefix)
	if !ok {
		return ActionNotFound
	}
	r, ok := routes[rest]
	if !ok {
		return ActionNotFound
	}

	// connect is posted from either credential page
	if r.action == ActionConnect && menu&(acconfig.MenuConfigNew|acconfig.MenuOpenSSIDs) == 0 {
		return ActionNotFound
	}
	if r.menu != 0 && !menu.Has(r.menu) {
		return ActionNotFound
	}

	if r.method == "" {
		if method != http.MethodGet && method != http.MethodHead {
			return ActionMethodNotAllowed
		}
	} else if method != r.method {
		return ActionMethodNotAllowed
	}
	return r.action
}
