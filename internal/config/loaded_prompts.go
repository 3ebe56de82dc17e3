package config

import "sync"

var (
	loadedPrompts   = map[string]LoadedPrompts{}
	loadedPromptsMu sync.RWMutex
)

// LoadedPrompts holds prompt content read from files for one stage
type LoadedPrompts struct {
	System string
	User   string
}

// GetPromptsForOperation returns a copy of the file-loaded prompts for a stage
func GetPromptsForOperation(stage string) LoadedPrompts {
	loadedPromptsMu.RLock()
	defer loadedPromptsMu.RUnlock()
	return loadedPrompts[stage]
}

func storeLoadedPrompts(stage string, prompts LoadedPrompts) {
	loadedPromptsMu.Lock()
	defer loadedPromptsMu.Unlock()
	if prompts == (LoadedPrompts{}) {
		delete(loadedPrompts, stage)
		return
	}
	loadedPrompts[stage] = prompts
}
