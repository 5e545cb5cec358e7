package domain

import (
	"fmt"
	"sort"
)

// Catalog is the immutable set of enterprise tables loaded at startup.
type Catalog struct {
	Version     string
	enterprises map[string]*Enterprise
}

// NewCatalog validates and indexes enterprises.
func NewCatalog(version string, enterprises []*Enterprise) (*Catalog, error) {
	c := &Catalog{
		Version:     version,
		enterprises: make(map[string]*Enterprise, len(enterprises)),
	}
	for _, e := range enterprises {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.enterprises[e.ID]; dup {
			return nil, fmt.Errorf("%w: enterprise %s declared twice", ErrInvalidTemplate, e.ID)
		}
		c.enterprises[e.ID] = e
	}
	return c, nil
}

// Enterprise returns the tables of one enterprise.
func (c *Catalog) Enterprise(id string) (*Enterprise, error) {
	e, ok := c.enterprises[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnterprise, id)
	}
	return e, nil
}

// Enterprises lists every enterprise ordered by id.
func (c *Catalog) Enterprises() []*Enterprise {
	list := make([]*Enterprise, 0, len(c.enterprises))
	for _, e := range c.enterprises {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
