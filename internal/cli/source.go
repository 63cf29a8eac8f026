package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/knotfield/internal/catalog"
	"github.com/roach88/knotfield/internal/config"
)

// openCatalog returns the catalog commands resolve knot ids against. With
// file set, the catalog holds just that file under its base name, which is
// also returned as the default id; otherwise cfg.Catalog is loaded.
func openCatalog(cfg config.Config, file string) (*catalog.Catalog, string, error) {
	if file == "" {
		cat, err := catalog.LoadDir(cfg.Catalog)
		if err != nil {
			return nil, "", err
		}
		return cat, cfg.Knot, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", file, err)
	}
	id := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	cat := catalog.New()
	if err := cat.Add(id, string(data)); err != nil {
		return nil, "", err
	}
	return cat, catalog.NormalizeID(id), nil
}

// knotArg picks the knot id from the positional arguments or falls back to
// def.
func knotArg(args []string, def string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if def == "" {
		return "", fmt.Errorf("no knot id given and none configured")
	}
	return def, nil
}
