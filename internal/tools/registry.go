package tools

import "omnibridge"

// Setup constructs every dispatcher against the shared collaborators, in
// registration order.
func Setup(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) []omnibridge.Tool {
	return []omnibridge.Tool{
		NewFoldersTool(bridge, cache, cfg),
		NewProjectsTool(bridge, cache, cfg),
		NewTasksTool(bridge, cache, cfg),
		NewTagsTool(bridge, cache, cfg),
		NewPerspectivesTool(bridge, cache, cfg),
		NewAnalyticsTool(bridge, cache, cfg),
	}
}
