package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/knotfield/internal/fseries"
)

// Extension is the file suffix LoadDir registers.
const Extension = ".fseries"

var (
	// ErrUnknownKnot is returned for identifiers that were never added.
	ErrUnknownKnot = errors.New("unknown knot")

	// ErrNoBlocks is returned when a knot's text contains no coefficient block.
	ErrNoBlocks = errors.New("no coefficient blocks")
)

// Catalog is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	texts map[string]string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{texts: make(map[string]string)}
}

// NormalizeID trims surrounding whitespace and applies Unicode NFC.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// Add registers text under id, replacing any previous entry.
func (c *Catalog) Add(id, text string) error {
	id = NormalizeID(id)
	if id == "" {
		return fmt.Errorf("catalog: empty knot id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts[id] = text
	return nil
}

// LoadDir registers every *.fseries file below dir. The identifier is the
// file's base name without the extension. Two files mapping to the same
// identifier are an error.
func LoadDir(dir string) (*Catalog, error) {
	c := New()
	origin := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != Extension {
			return nil
		}
		id := NormalizeID(strings.TrimSuffix(d.Name(), Extension))
		if prev, ok := origin[id]; ok {
			return fmt.Errorf("duplicate knot id %q: %s and %s", id, prev, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		origin[id] = path
		return c.Add(id, string(data))
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", dir, err)
	}
	return c, nil
}

// Len returns the number of registered knots.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.texts)
}

// IDs returns the registered identifiers in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.texts))
	for id := range c.texts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Text returns the raw .fseries text for id.
func (c *Catalog) Text(id string) (string, error) {
	id = NormalizeID(id)
	c.mu.RLock()
	text, ok := c.texts[id]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKnot, id)
	}
	return text, nil
}

// Blocks parses the text registered for id.
func (c *Catalog) Blocks(id string) ([]fseries.Block, error) {
	text, err := c.Text(id)
	if err != nil {
		return nil, err
	}
	blocks, err := fseries.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("knot %q: %w", NormalizeID(id), err)
	}
	return blocks, nil
}

// Largest returns the block of id chosen by SelectLargest.
func (c *Catalog) Largest(id string) (fseries.Block, error) {
	blocks, err := c.Blocks(id)
	if err != nil {
		return fseries.Block{}, err
	}
	idx, err := SelectLargest(blocks)
	if err != nil {
		return fseries.Block{}, fmt.Errorf("knot %q: %w", NormalizeID(id), err)
	}
	return blocks[idx], nil
}

// SelectLargest returns the index of the block with the most harmonics.
// Ties go to the earliest block.
func SelectLargest(blocks []fseries.Block) (int, error) {
	if len(blocks) == 0 {
		return -1, ErrNoBlocks
	}
	best := 0
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Harmonics() > blocks[best].Harmonics() {
			best = i
		}
	}
	return best, nil
}
