package hooks

// HookType names the point in an install run a script is attached to.
type HookType string

// PostInstall runs once after every pipeline step has finished.
const PostInstall HookType = "post-install"

// Hook is one loaded script.
type Hook struct {
	Type    HookType
	Content string
	Path    string
}

// HookContext describes the finished run. Vars are added as extra script
// globals and may shadow the built in ones.
type HookContext struct {
	Mode        string
	RunID       string
	Home        string
	InstallDir  string
	GatewayPort int
	Vars        map[string]interface{}
}

func (hc HookContext) globals() map[string]interface{} {
	vars := map[string]interface{}{
		"mode":        hc.Mode,
		"runID":       hc.RunID,
		"home":        hc.Home,
		"installDir":  hc.InstallDir,
		"gatewayPort": hc.GatewayPort,
	}
	for k, v := range hc.Vars {
		vars[k] = v
	}
	return vars
}
