package tools

import (
	"fmt"

	"github.com/perch-panel/perch/internal/tool"
)

// RegisterAll registers the full tool catalog on the registry.
func RegisterAll(registry *tool.Registry, deps *Deps) error {
	catalog := []tool.Tool{
		NewPowerAction(deps),
		NewCreateBackup(deps),
		NewDeleteBackup(deps),
		NewAutoAllocate(deps),
		NewDeleteAllocation(deps),
		NewCreateDatabase(deps),
		NewCompressFiles(deps),
		NewWriteFile(deps),
		NewPullFile(deps),
		NewCreateSchedule(deps),
		NewCreateTask(deps),
	}
	for _, t := range catalog {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("tools: register %s: %w", t.Name(), err)
		}
	}
	return nil
}
