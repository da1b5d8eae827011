package builtin

import "github.com/bazelment/miniagent/tool"

// RegisterAll adds every builtin tool to the registry.
func RegisterAll(registry *tool.Registry) error {
	for _, register := range []func(*tool.Registry) error{
		RegisterRead,
		RegisterWrite,
		RegisterEdit,
		RegisterBash,
		RegisterGrep,
		RegisterFind,
		RegisterLs,
	} {
		if err := register(registry); err != nil {
			return err
		}
	}
	return nil
}
