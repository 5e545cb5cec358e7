// Package rulecatalog loads the enterprise tables and rule modules from YAML.
package rulecatalog

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/iho/ledgerimport/internal/domain"
)

//go:embed enterprises/*.yaml
var embedded embed.FS

const embeddedDir = "enterprises"

// enterpriseFile is one enterprise document. Layouts are declared once and
// referenced by name from the rules.
type enterpriseFile struct {
	domain.Enterprise `yaml:",inline"`
	Layouts           map[string]domain.ColumnLayout  `yaml:"layouts"`
	InvoiceLayouts    map[string]domain.InvoiceLayout `yaml:"invoice_layouts"`
}

// Load reads the catalog from dir, or from the embedded tables when dir is
// empty.
func Load(dir string) (*domain.Catalog, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, embeddedDir)
		if err != nil {
			return nil, err
		}
		return LoadFS(sub)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rules dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rules dir %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS reads every *.yaml file at the root of fsys. The catalog version is
// a digest of the file names and contents.
func LoadFS(fsys fs.FS) (*domain.Catalog, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no enterprise files found", domain.ErrInvalidTemplate)
	}
	sort.Strings(names)

	digest := sha256.New()
	enterprises := make([]*domain.Enterprise, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		digest.Write([]byte(name))
		digest.Write([]byte{0})
		digest.Write(data)

		e, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		enterprises = append(enterprises, e)
	}

	version := hex.EncodeToString(digest.Sum(nil))[:12]
	return domain.NewCatalog(version, enterprises)
}

func parse(data []byte) (*domain.Enterprise, error) {
	var file enterpriseFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidTemplate)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
	}

	e := file.Enterprise
	for i := range e.Rules {
		r := &e.Rules[i]

		layout, ok := file.Layouts[r.LayoutName]
		if !ok {
			return nil, fmt.Errorf("%w: rule %s: unknown layout %q", domain.ErrInvalidLayout, r.ID, r.LayoutName)
		}
		r.Layout = layout

		if r.InvoiceLayoutName != "" {
			inv, ok := file.InvoiceLayouts[r.InvoiceLayoutName]
			if !ok {
				return nil, fmt.Errorf("%w: rule %s: unknown invoice layout %q", domain.ErrInvalidLayout, r.ID, r.InvoiceLayoutName)
			}
			r.InvoiceLayout = &inv
		}
	}

	return &e, nil
}
