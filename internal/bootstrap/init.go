package bootstrap

import (
	"errors"
	"fmt"
	"os"

	"podscribe/internal/config"
)

// ErrConfigExists is returned by InitConfig when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// InitConfig saves the config template through store. An existing file is
// only replaced when force is set.
func InitConfig(store config.Store, force bool) error {
	path := store.Path()
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check config path: %w", err)
	}

	if err := store.Save(config.Template()); err != nil {
		return fmt.Errorf("save config template: %w", err)
	}
	return nil
}
