package acconfig

import (
	"fmt"

	"github.com/muurk/autoconnect/internal/nvstore"
)

// DefaultOffset is where the archive lives in an offset-addressed store.
const DefaultOffset = 1024

// Selector addresses the archive in either kind of store.
func Selector(offset int) nvstore.Selector {
	return nvstore.Selector{Offset: offset, Key: Magic}
}

// Load reads the archive at offset into c. c is unchanged on error.
func (c *PortalConfig) Load(s nvstore.Store, offset int) error {
	rec, err := nvstore.LoadFramed(s, Selector(offset), Magic)
	if err != nil {
		return err
	}
	return c.Unmarshal(rec)
}

// Save writes c at offset.
func (c *PortalConfig) Save(s nvstore.Store, offset int) error {
	rec, err := c.Marshal()
	if err != nil {
		return err
	}
	sel := Selector(offset)
	if err := s.Save(sel, rec); err != nil {
		return fmt.Errorf("saving config archive: %w", err)
	}
	return nil
}
